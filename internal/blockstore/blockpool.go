package blockstore

import (
	"fmt"
	"time"
)

// BlockPool is a fixed-capacity vector of blocks. Neither the number of
// slots nor their size grows after creation (§5).
type BlockPool struct {
	blocks  []Block
	shadows []blockShadow
	used    int
	now     func() time.Time
}

// blockShadow preserves the last content a slot held right before it was
// freed, so [Engine] version rollback can reconstruct a target version's
// bytes even in the pathological case where every block it names has
// since been freed (§4.5). A shadow is trustworthy only as long as its
// digest matches what the caller expects; a mismatch means the slot has
// since been freed and reused for different content, and reconstruction
// must be reported as corruption rather than silently returning the
// wrong bytes.
type blockShadow struct {
	valid  bool
	digest Digest
	data   []byte
}

// newBlockPool allocates a pool of capacity blocks, all FREE.
func newBlockPool(capacity int, now func() time.Time) *BlockPool {
	blocks := make([]Block, capacity)
	shadows := make([]blockShadow, capacity)

	for i := range blocks {
		blocks[i] = newFreeBlock()
	}

	return &BlockPool{blocks: blocks, shadows: shadows, now: now}
}

// Capacity returns the fixed number of slots in the pool.
func (p *BlockPool) Capacity() int {
	return len(p.blocks)
}

// Used returns the number of non-FREE slots.
func (p *BlockPool) Used() int {
	return p.used
}

func (p *BlockPool) validID(id BlockID) bool {
	return id >= 0 && int(id) < len(p.blocks)
}

// Get returns a read-only view of a block's metadata (not its data).
func (p *BlockPool) Get(id BlockID) (Block, error) {
	if !p.validID(id) {
		return Block{}, fmt.Errorf("block %d: %w", id, ErrNotFound)
	}

	return p.blocks[id], nil
}

// Allocate scans for the first FREE slot (lowest index wins - tests and
// callers rely on this first-fit ordering) and turns it into a fresh block
// with ref_count=1, kind=kind, and zeroed data.
func (p *BlockPool) Allocate(kind BlockKind) (BlockID, error) {
	for i := range p.blocks {
		if p.blocks[i].Kind == BlockFree {
			now := p.now()
			p.blocks[i].Kind = kind
			p.blocks[i].RefCount = 1
			p.blocks[i].IsCOW = false
			p.blocks[i].IsDeduplicated = false
			p.blocks[i].OriginalBlock = noBlock
			p.blocks[i].ContentDigest = Digest{}
			p.blocks[i].CreatedAt = now
			p.blocks[i].ModifiedAt = now
			p.used++

			return BlockID(i), nil
		}
	}

	return noBlock, ErrNoSpace
}

// Ref increments a block's reference count. Fails if the block is FREE.
func (p *BlockPool) Ref(id BlockID) error {
	if !p.validID(id) {
		return fmt.Errorf("block %d: %w", id, ErrNotFound)
	}

	b := &p.blocks[id]
	if b.Kind == BlockFree {
		return fmt.Errorf("block %d is free: %w", id, ErrCorruption)
	}

	b.RefCount++

	return nil
}

// Free decrements a block's reference count; when it reaches zero the slot
// is reset to FREE and its data zeroed (invariant B1). Free is idempotent
// on an already-FREE block.
func (p *BlockPool) Free(id BlockID) error {
	if !p.validID(id) {
		return fmt.Errorf("block %d: %w", id, ErrNotFound)
	}

	b := &p.blocks[id]
	if b.Kind == BlockFree {
		return nil
	}

	b.RefCount--
	if b.RefCount <= 0 {
		sh := &p.shadows[id]
		sh.valid = true
		sh.digest = b.ContentDigest
		if cap(sh.data) < len(b.Data) {
			sh.data = make([]byte, len(b.Data))
		}
		sh.data = sh.data[:len(b.Data)]
		copy(sh.data, b.Data)

		b.zero()
		p.used--
	}

	return nil
}

// Shadow returns the last content a slot held before it was last freed,
// if any. The returned digest must be checked against what the caller
// expects before trusting data - see [blockShadow].
func (p *BlockPool) Shadow(id BlockID) (digest Digest, data []byte, ok bool) {
	if !p.validID(id) {
		return Digest{}, nil, false
	}

	sh := p.shadows[id]
	if !sh.valid {
		return Digest{}, nil, false
	}

	return sh.digest, sh.data, true
}

// markCOW marks id as copy-on-write derived from original. Used when
// rollback materializes a freed block from its shadow (§4.5).
func (p *BlockPool) markCOW(id, original BlockID) {
	b := &p.blocks[id]
	b.IsCOW = true
	b.OriginalBlock = original
}

// markDeduplicated flags id as having satisfied at least one write via
// dedup (§4.3 step 2).
func (p *BlockPool) markDeduplicated(id BlockID) {
	p.blocks[id].IsDeduplicated = true
}

// Read copies the full block into out, which must be BlockSize bytes long.
// Fails if the block is FREE.
func (p *BlockPool) Read(id BlockID, out []byte) error {
	if !p.validID(id) {
		return fmt.Errorf("block %d: %w", id, ErrNotFound)
	}

	b := &p.blocks[id]
	if b.Kind == BlockFree {
		return fmt.Errorf("block %d is free: %w", id, ErrCorruption)
	}

	copy(out, b.Data)

	return nil
}

// Write copies in into the block, updates modified_at, and recomputes the
// block's content digest. Fails if the block is FREE. in must be exactly
// BlockSize bytes.
func (p *BlockPool) Write(id BlockID, in []byte) error {
	if !p.validID(id) {
		return fmt.Errorf("block %d: %w", id, ErrNotFound)
	}

	b := &p.blocks[id]
	if b.Kind == BlockFree {
		return fmt.Errorf("block %d is free: %w", id, ErrCorruption)
	}

	copy(b.Data, in)
	b.ContentDigest = ComputeDigest(b.Data)
	b.ModifiedAt = p.now()

	return nil
}

// COW allocates a fresh block, copies src's data and digest into it, and
// marks the new block as copy-on-write derived from src.
func (p *BlockPool) COW(src BlockID) (BlockID, error) {
	if !p.validID(src) {
		return noBlock, fmt.Errorf("block %d: %w", src, ErrNotFound)
	}

	srcBlock := p.blocks[src]
	if srcBlock.Kind == BlockFree {
		return noBlock, fmt.Errorf("block %d is free: %w", src, ErrCorruption)
	}

	id, err := p.Allocate(BlockData)
	if err != nil {
		return noBlock, err
	}

	b := &p.blocks[id]
	copy(b.Data, srcBlock.Data)
	b.ContentDigest = srcBlock.ContentDigest
	b.IsCOW = true
	b.OriginalBlock = src

	return id, nil
}
