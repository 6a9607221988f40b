package blockstore

import (
	"fmt"
	"time"
)

// Engine is the facade tying together the block pool, inode table, dedup
// index, version/snapshot stores, and metrics into the public API (§2,
// "Engine Facade"; §6). An Engine is not safe for concurrent use: callers
// sharing one across goroutines must serialize every call themselves
// (§5).
type Engine struct {
	opts     Options
	pool     *BlockPool
	inodes   *InodeTable
	dedup    *DedupIndex
	snaps    *SnapshotStore
	metrics  Metrics
	logger   Logger
	now      func() time.Time
	baseOpts Options // copy of the options New was given; Format rebuilds from opts
}

// New creates a fresh engine: every block FREE, every inode slot empty
// (§6, `create`). now defaults to time.Now when nil; tests inject a
// deterministic clock.
func New(opts Options, now func() time.Time) (*Engine, error) {
	if opts.TotalBlocks <= 0 || opts.TotalInodes <= 0 {
		return nil, fmt.Errorf("total_blocks and total_inodes must be positive: %w", ErrInvalidArgument)
	}

	if now == nil {
		now = time.Now
	}

	opts = opts.withDefaults()

	e := &Engine{
		opts:     opts,
		baseOpts: opts,
		logger:   resolveLogger(opts.Logger),
		now:      now,
	}
	e.reset()

	return e, nil
}

func (e *Engine) reset() {
	e.pool = newBlockPool(e.opts.TotalBlocks, e.now)
	e.inodes = newInodeTable(e.opts.TotalInodes, e.now)
	e.dedup = newDedupIndex()
	e.snaps = newSnapshotStore(e.now)
	e.metrics = Metrics{}
}

// Format resets the engine to its post-create state and zeroes metrics
// (§6, `format`). Disk path and configuration are preserved.
func (e *Engine) Format() {
	e.reset()
	e.logger.Info("blockstore: formatted", "total_blocks", e.opts.TotalBlocks, "total_inodes", e.opts.TotalInodes)
}

// CreateFile registers a new, empty inode under name with the given
// immutability policy (§6, `create_file`).
func (e *Engine) CreateFile(name string, policy ImmutabilityPolicy) (InodeID, error) {
	in, err := e.inodes.Create(name, policy)
	if err != nil {
		return 0, err
	}

	e.metrics.FilesCreated++

	return in.ID, nil
}

// writeBlockPath implements §4.3's single-block write path: dedup lookup,
// then either a ref-count bump or a fresh allocation. It returns the
// resulting block id and whether it was a dedup hit.
func (e *Engine) writeBlockPath(buf []byte) (BlockID, bool, error) {
	digest := ComputeDigest(buf)

	if existing, ok := e.dedup.Lookup(digest, e.pool); ok {
		if err := e.pool.Ref(existing); err != nil {
			return noBlock, false, err
		}

		e.pool.markDeduplicated(existing)

		e.metrics.BlocksDeduplicated++
		e.metrics.BytesSavedDedup += BlockSize

		return existing, true, nil
	}

	id, err := e.pool.Allocate(BlockData)
	if err != nil {
		return noBlock, false, err
	}

	if err := e.pool.Write(id, buf); err != nil {
		_ = e.pool.Free(id)
		return noBlock, false, err
	}

	e.dedup.Register(digest, id, len(buf))
	e.metrics.BlocksAllocated++

	return id, false, nil
}

// appendBytes implements the shared chunking/unwind logic behind
// write_file and append_file (§4.3 step 2-4): split data into
// BLOCK_SIZE buffers, zero-padding the tail, run the single-block write
// path for each, and append the resulting ids to blockList. On any
// failure every block touched in this call is unwound (freed or
// ref-decremented) before the error is returned, so no partial write is
// observable (§7).
func (e *Engine) appendBytes(in *Inode, data []byte) error {
	if err := checkWrite(in.Policy, in.Size); err != nil {
		return err
	}

	var touched []BlockID

	unwind := func() {
		for _, id := range touched {
			_ = e.pool.Free(id)
		}
	}

	k := (len(data) + BlockSize - 1) / BlockSize
	if len(data) == 0 {
		k = 0
	}

	for i := 0; i < k; i++ {
		start := i * BlockSize
		end := start + BlockSize
		if end > len(data) {
			end = len(data)
		}

		buf := make([]byte, BlockSize)
		copy(buf, data[start:end])

		id, _, err := e.writeBlockPath(buf)
		if err != nil {
			unwind()
			return err
		}

		touched = append(touched, id)
	}

	// Only commit to the inode's own block list once every chunk has
	// succeeded - a mid-loop failure must leave in.BlockList exactly as
	// it was (§7: no partial writes observable).
	in.BlockList = append(in.BlockList, touched...)
	in.Size += len(data)
	in.ModifiedAt = e.now()

	return nil
}

// WriteFile appends bytes to name's inode, deduplicating per block and
// auto-creating a version (§4.3, §6). The write path is append-semantic,
// not overwrite: size grows by len(bytes) (§9).
func (e *Engine) WriteFile(id InodeID, data []byte, strategy WriteStrategy) (int, error) {
	start := e.now()

	in, err := e.inodes.Get(id)
	if err != nil {
		return 0, err
	}

	if err := e.appendBytes(in, data); err != nil {
		return 0, err
	}

	createVersion(in, e.pool, "auto-version from write", strategy, e.now())
	e.metrics.VersionsCreated++
	e.metrics.BytesWritten += int64(len(data))
	e.metrics.observeWrite(e.now().Sub(start).Nanoseconds())
	e.snaps.recordOperation()

	return in.Size, nil
}

// ReadFile returns exactly inode.size bytes, reconstructed block by
// block (§4.4, `read_file`).
func (e *Engine) ReadFile(id InodeID) ([]byte, error) {
	in, err := e.inodes.Get(id)
	if err != nil {
		return nil, err
	}

	out := make([]byte, in.Size)
	scratch := make([]byte, BlockSize)
	remaining := in.Size

	for _, blockID := range in.BlockList {
		if remaining <= 0 {
			break
		}

		if err := e.pool.Read(blockID, scratch); err != nil {
			return nil, err
		}

		n := remaining
		if n > BlockSize {
			n = BlockSize
		}

		copy(out[in.Size-remaining:], scratch[:n])
		remaining -= n
	}

	e.metrics.BytesRead += int64(len(out))
	e.metrics.ReadsTotal++

	return out, nil
}

// AppendFile reads name's current contents, concatenates data, and
// writes the result back (§6, `append_file`) - distinct from WriteFile,
// which extends the block list directly without re-reading.
func (e *Engine) AppendFile(id InodeID, data []byte) (int, error) {
	current, err := e.ReadFile(id)
	if err != nil {
		return 0, err
	}

	return e.WriteFile(id, append(current, data...), e.opts.DefaultStrategy)
}

// DeleteFile frees every block the inode's current and versioned block
// lists reference and removes the inode (§6, `delete_file`). Forbidden
// unless policy is NONE (§4.7).
func (e *Engine) DeleteFile(id InodeID) error {
	in, err := e.inodes.Get(id)
	if err != nil {
		return err
	}

	if err := checkDelete(in.Policy); err != nil {
		return err
	}

	for _, blockID := range in.BlockList {
		_ = e.pool.Free(blockID)
	}

	for _, v := range in.Versions {
		for _, blockID := range v.BlockList {
			_ = e.pool.Free(blockID)
		}
	}

	if err := e.inodes.Delete(id); err != nil {
		return err
	}

	e.metrics.FilesDeleted++

	return nil
}

// CreateVersion appends a new version record over the inode's current
// block list without changing any ref count (§4.5, §6).
func (e *Engine) CreateVersion(id InodeID, description string) (int, error) {
	in, err := e.inodes.Get(id)
	if err != nil {
		return 0, err
	}

	v := createVersion(in, e.pool, description, e.opts.DefaultStrategy, e.now())
	e.metrics.VersionsCreated++

	return v.VersionID, nil
}

// RollbackVersion restores the inode's current block list and size to
// those of versionID (§4.5, §6).
func (e *Engine) RollbackVersion(id InodeID, versionID int) error {
	in, err := e.inodes.Get(id)
	if err != nil {
		return err
	}

	if err := rollbackVersion(in, e.pool, versionID, e.now()); err != nil {
		return err
	}

	e.metrics.VersionRollbacks++
	e.logger.Info("blockstore: version rollback", "inode", id, "version", versionID)

	return nil
}

// CreateSnapshot records the current_version of every live inode under
// a unique name (§4.6, §6).
func (e *Engine) CreateSnapshot(name, description string) (int, error) {
	snap, err := e.snaps.Create(e.inodes, name, description)
	if err != nil {
		return 0, err
	}

	e.metrics.SnapshotsCreated++

	return snap.SnapshotID, nil
}

// RollbackSnapshot rolls every captured inode back to its
// captured-at-snapshot version. Inodes created after the snapshot are
// untouched (§4.6, §9).
func (e *Engine) RollbackSnapshot(id int) error {
	if err := e.snaps.Rollback(id, e.inodes, e.pool, e.now()); err != nil {
		return err
	}

	e.metrics.SnapshotRollbacks++
	e.logger.Info("blockstore: snapshot rollback", "snapshot", id)

	return nil
}

// TrimSnapshot sets a snapshot's advisory trimmed flag (§4.6, §6; Open
// Question (a): no blocks are freed by trim in the current design).
func (e *Engine) TrimSnapshot(id int) error {
	return e.snaps.Trim(id)
}

// GroupSnapshots assigns a named group to the given snapshot ids.
func (e *Engine) GroupSnapshots(groupName string, snapshotIDs ...int) (*SnapshotGroup, error) {
	return e.snaps.Group(groupName, snapshotIDs...)
}

// SnapshotImportance computes the §4.6 importance score for a snapshot,
// using the number of inodes it captured as the ref_count term (inodes
// deleted since the capture still count).
func (e *Engine) SnapshotImportance(id int) (float64, error) {
	snap, err := e.snaps.Get(id)
	if err != nil {
		return 0, err
	}

	return Importance(snap, e.now(), len(snap.Captured)), nil
}

// ShouldCreateSnapshot reports whether the auto-snapshot hook should
// fire, given the engine's configured granularity and threshold (§4.6).
func (e *Engine) ShouldCreateSnapshot() bool {
	if !e.opts.AutoSnapshotEnabled {
		return false
	}

	return e.snaps.ShouldCreateSnapshot(e.opts.DefaultGranularity, e.opts.AutoSnapshotThreshold)
}

// TagVersion adds a tag to one of an inode's versions, bounded by
// MaxTagsPerVersion (§6 supplemented feature).
func (e *Engine) TagVersion(id InodeID, versionID int, tag string) error {
	in, err := e.inodes.Get(id)
	if err != nil {
		return err
	}

	if versionID < 1 || versionID > len(in.Versions) {
		return fmt.Errorf("version %d: %w", versionID, ErrInvalidArgument)
	}

	return addVersionTag(in.Versions[versionID-1], tag)
}

// FindVersionsByTag returns id's versions carrying tag.
func (e *Engine) FindVersionsByTag(id InodeID, tag string) ([]*Version, error) {
	in, err := e.inodes.Get(id)
	if err != nil {
		return nil, err
	}

	return findVersionsByTag(in, tag), nil
}

// FindVersionsByDescription returns id's versions whose description
// matches description.
func (e *Engine) FindVersionsByDescription(id InodeID, description string) ([]*Version, error) {
	in, err := e.inodes.Get(id)
	if err != nil {
		return nil, err
	}

	return findVersionsByDescription(in, description), nil
}

// SetXattr sets an extended attribute on an inode (§9 supplemented
// feature, grounded on original_source/backend/filesystem.c's xattr
// table).
func (e *Engine) SetXattr(id InodeID, key, value string) error {
	if key == "" {
		return fmt.Errorf("xattr key is empty: %w", ErrInvalidArgument)
	}

	in, err := e.inodes.Get(id)
	if err != nil {
		return err
	}

	in.ExtendedAttributes[key] = value

	return nil
}

// GetXattr returns an inode's extended attribute value, or ErrNotFound
// if unset.
func (e *Engine) GetXattr(id InodeID, key string) (string, error) {
	in, err := e.inodes.Get(id)
	if err != nil {
		return "", err
	}

	v, ok := in.ExtendedAttributes[key]
	if !ok {
		return "", fmt.Errorf("xattr %q: %w", key, ErrNotFound)
	}

	return v, nil
}

// DeleteXattr removes an inode's extended attribute, if set.
func (e *Engine) DeleteXattr(id InodeID, key string) error {
	in, err := e.inodes.Get(id)
	if err != nil {
		return err
	}

	delete(in.ExtendedAttributes, key)

	return nil
}

// GetMetrics returns a snapshot of the engine's counters (§6,
// `get_metrics`). The returned value is a copy; mutating it has no
// effect on the engine.
func (e *Engine) GetMetrics() Metrics {
	return e.metrics
}

// ResetMetrics zeroes every counter (§6, `reset_metrics`).
func (e *Engine) ResetMetrics() {
	e.metrics = Metrics{}
}

// PoolOccupancy reports block pool usage and the running dedup ratio.
func (e *Engine) PoolOccupancy() PoolOccupancy {
	return PoolOccupancy{
		UsedBlocks:  e.pool.Used(),
		FreeBlocks:  e.pool.Capacity() - e.pool.Used(),
		TotalBlocks: e.pool.Capacity(),
		DedupRatio:  computeDedupRatio(e.metrics),
	}
}

// CompactDedupIndex opportunistically removes stale dedup entries (§9,
// "stale dedup entries"). It is never required for correctness.
func (e *Engine) CompactDedupIndex() int {
	return e.dedup.Compact(e.pool)
}
