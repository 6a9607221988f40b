package blockstore

// dedupEntry is one append-only record in the dedup index: {content
// digest, block id, ref count, size, first seen}. The index itself is a
// multimap: an entry is appended each time a write misses the index and
// allocates a block, so one digest can map to several block ids. A write
// that hits the index adds no entry (§3, "Dedup entry").
type dedupEntry struct {
	digest    Digest
	blockID   BlockID
	refCount  int
	size      int
	firstSeen int
}

// DedupIndex maps content digests to candidate block ids. Resolution at
// lookup time always re-checks the candidate block's *current* content
// digest (§4.1, §4.3) so stale entries - whose block has since been freed
// or overwritten - are skipped rather than trusted.
type DedupIndex struct {
	entries []dedupEntry
	seq     int
}

func newDedupIndex() *DedupIndex {
	return &DedupIndex{}
}

// Lookup scans the index for an entry whose block's current content
// digest equals d and whose block is not FREE, returning the first such
// block id (in index order). Stale entries are skipped, not removed -
// compaction is opportunistic (see [DedupIndex.Compact]).
func (idx *DedupIndex) Lookup(d Digest, pool *BlockPool) (BlockID, bool) {
	for _, e := range idx.entries {
		if !EqualDigest(e.digest, d) {
			continue
		}

		b, err := pool.Get(e.blockID)
		if err != nil || b.Kind == BlockFree {
			continue
		}

		if EqualDigest(b.ContentDigest, d) {
			return e.blockID, true
		}
	}

	return noBlock, false
}

// Register appends a new dedup entry for (digest, blockID, size).
func (idx *DedupIndex) Register(d Digest, blockID BlockID, size int) {
	idx.seq++
	idx.entries = append(idx.entries, dedupEntry{
		digest:    d,
		blockID:   blockID,
		refCount:  1,
		size:      size,
		firstSeen: idx.seq,
	})
}

// Compact drops entries whose block is now FREE or whose stored digest no
// longer matches the block's live content digest. It is never required
// for correctness (Lookup already treats stale entries as absent) but
// bounds the index's size over long process lifetimes.
func (idx *DedupIndex) Compact(pool *BlockPool) int {
	live := idx.entries[:0]

	removed := 0

	for _, e := range idx.entries {
		b, err := pool.Get(e.blockID)
		if err != nil || b.Kind == BlockFree || !EqualDigest(b.ContentDigest, e.digest) {
			removed++
			continue
		}

		live = append(live, e)
	}

	idx.entries = live

	return removed
}

// Len returns the number of entries currently stored, including stale
// ones not yet compacted.
func (idx *DedupIndex) Len() int {
	return len(idx.entries)
}
