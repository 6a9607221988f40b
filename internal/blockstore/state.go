package blockstore

// State is a round-trippable image of engine state, covering exactly
// what §6 mandates a persistence format preserve: the block metadata
// array (including data for non-FREE blocks), the inode table, and the
// metrics struct. The dedup index is not persisted: Import rebuilds it
// from the digests of the restored non-FREE blocks. Snapshots are not
// persisted either: Import starts with an empty snapshot store.
//
// Per-version shadow digests (an in-memory-only optimization used to
// verify materialized rollback data, §4.5) are not part of State: a
// version that was only recoverable through a shadow before a save is
// not guaranteed recoverable after a load where the shadow was never
// captured. This matches the core's "non-goals: durability across
// crashes" (§1).
type State struct {
	TotalBlocks int
	TotalInodes int
	Blocks      []Block
	Inodes      []*Inode
	Metrics     Metrics
}

// Export captures the engine's current state by value. Block data
// slices are copied so later engine mutation cannot alias into the
// returned State.
func (e *Engine) Export() State {
	blocks := make([]Block, len(e.pool.blocks))

	for i, b := range e.pool.blocks {
		blocks[i] = b
		blocks[i].Data = append([]byte(nil), b.Data...)
	}

	inodes := make([]*Inode, len(e.inodes.slots))

	for i, in := range e.inodes.slots {
		if in == nil {
			continue
		}

		cp := *in
		cp.BlockList = append([]BlockID(nil), in.BlockList...)
		cp.ExtendedAttributes = make(map[string]string, len(in.ExtendedAttributes))

		for k, v := range in.ExtendedAttributes {
			cp.ExtendedAttributes[k] = v
		}

		cp.Versions = make([]*Version, len(in.Versions))
		for j, v := range in.Versions {
			vc := *v
			vc.BlockList = append([]BlockID(nil), v.BlockList...)
			vc.Tags = append([]string(nil), v.Tags...)
			cp.Versions[j] = &vc
		}

		inodes[i] = &cp
	}

	return State{
		TotalBlocks: e.pool.Capacity(),
		TotalInodes: e.inodes.Capacity(),
		Blocks:      blocks,
		Inodes:      inodes,
		Metrics:     e.metrics,
	}
}

// Import replaces the engine's block pool and inode table with s. The
// dedup index is rebuilt from the restored blocks' content digests so
// post-load writes continue to deduplicate correctly; the snapshot
// store starts empty, matching the documented non-goal of persisting
// snapshots across a load (§6 names only block metadata, block data,
// the inode table, and metrics as mandatory).
func (e *Engine) Import(s State) error {
	if s.TotalBlocks != e.pool.Capacity() || s.TotalInodes != e.inodes.Capacity() {
		return errMismatchedCapacity
	}

	pool := newBlockPool(s.TotalBlocks, e.now)
	for i, b := range s.Blocks {
		pool.blocks[i] = b
		pool.blocks[i].Data = append([]byte(nil), b.Data...)

		if b.Kind != BlockFree {
			pool.used++
		}
	}

	table := newInodeTable(s.TotalInodes, e.now)
	for i, in := range s.Inodes {
		if in == nil {
			continue
		}

		cp := *in
		table.slots[i] = &cp
		table.nameIndex[cp.Name] = cp.ID
		table.used++
	}

	dedup := newDedupIndex()
	for id, b := range pool.blocks {
		if b.Kind != BlockFree {
			dedup.Register(b.ContentDigest, BlockID(id), len(b.Data))
		}
	}

	e.pool = pool
	e.inodes = table
	e.dedup = dedup
	e.snaps = newSnapshotStore(e.now)
	e.metrics = s.Metrics

	return nil
}
