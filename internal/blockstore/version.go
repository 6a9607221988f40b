package blockstore

import (
	"fmt"
	"time"
)

// createVersion appends a new version record whose block list is a value
// copy of in's current block list (§4.5, step 1-3). It does not change
// any ref counts: the invariant holds because the inode itself still
// holds those references.
func createVersion(in *Inode, pool *BlockPool, description string, strategy WriteStrategy, now time.Time) *Version {
	blockList := make([]BlockID, len(in.BlockList))
	copy(blockList, in.BlockList)

	digests := make([]Digest, len(blockList))

	for i, id := range blockList {
		b, err := pool.Get(id)
		if err == nil {
			digests[i] = b.ContentDigest
		}
	}

	v := &Version{
		VersionID:     len(in.Versions) + 1,
		ParentVersion: in.CurrentVersion,
		Size:          in.Size,
		BlockList:     blockList,
		Strategy:      strategy,
		Description:   description,
		CreatedAt:     now,
		blockDigests:  digests,
	}

	in.Versions = append(in.Versions, v)
	in.CurrentVersion = v.VersionID

	return v
}

// rollbackVersion restores in's current block list and size to those of
// versions[versionID-1] (§4.5).
//
// Ordering is load-bearing: step 1 (materialize/bump every target block)
// runs to completion before step 2 (release the inode's current blocks)
// so that blocks shared between the current and target lists are never
// freed before their ref count reflects the target's reference.
func rollbackVersion(in *Inode, pool *BlockPool, versionID int, now time.Time) error {
	if versionID < 1 || versionID > len(in.Versions) {
		return fmt.Errorf("version %d: %w", versionID, ErrInvalidArgument)
	}

	target := in.Versions[versionID-1]

	materialized, undo, err := materializeVersionBlocks(pool, target)
	if err != nil {
		undo()
		return err
	}

	for _, id := range in.BlockList {
		if err := pool.Free(id); err != nil {
			return fmt.Errorf("releasing current blocks during rollback: %w", err)
		}
	}

	in.BlockList = materialized
	in.Size = target.Size
	in.CurrentVersion = target.VersionID
	in.ModifiedAt = now

	return nil
}

// materializeVersionBlocks implements §4.5 step 1: for every block the
// target version names, either bump its ref count (it is still live) or
// reconstruct it from its pre-free shadow and rewrite the version's
// entry to the new id. On any failure it returns an undo func that
// releases whatever refs/allocations were made so far, leaving no
// partial state observable (§7).
func materializeVersionBlocks(pool *BlockPool, target *Version) ([]BlockID, func(), error) {
	result := make([]BlockID, len(target.BlockList))
	var done []BlockID // ids whose ref count we bumped or that we freshly allocated

	undo := func() {
		for _, id := range done {
			_ = pool.Free(id)
		}
	}

	for i, id := range target.BlockList {
		b, err := pool.Get(id)
		if err == nil && b.Kind != BlockFree {
			if refErr := pool.Ref(id); refErr != nil {
				return nil, undo, fmt.Errorf("materializing version: %w", refErr)
			}

			done = append(done, id)
			result[i] = id

			continue
		}

		digest, data, ok := pool.Shadow(id)
		if !ok || !EqualDigest(digest, target.blockDigests[i]) {
			return nil, undo, fmt.Errorf("block %d unrecoverable for version %d: %w", id, target.VersionID, ErrCorruption)
		}

		newID, allocErr := pool.Allocate(BlockData)
		if allocErr != nil {
			// NoSpace while reconstructing an otherwise-valid version is
			// reported as Corruption: the target version is unrecoverable
			// under current capacity (§7).
			return nil, undo, fmt.Errorf("no space to reconstruct block for version %d: %w", target.VersionID, ErrCorruption)
		}

		if writeErr := pool.Write(newID, data); writeErr != nil {
			return nil, undo, fmt.Errorf("reconstructing block for version %d: %w", target.VersionID, writeErr)
		}

		pool.markCOW(newID, id)
		done = append(done, newID)
		result[i] = newID
		target.BlockList[i] = newID
	}

	return result, undo, nil
}

// addVersionTag appends tag to a version's tag list, bounded by
// MaxTagsPerVersion (§6).
func addVersionTag(v *Version, tag string) error {
	if tag == "" {
		return fmt.Errorf("tag is empty: %w", ErrInvalidArgument)
	}

	for _, t := range v.Tags {
		if t == tag {
			return nil
		}
	}

	if len(v.Tags) >= MaxTagsPerVersion {
		return fmt.Errorf("version %d already has %d tags: %w", v.VersionID, MaxTagsPerVersion, ErrInvalidArgument)
	}

	v.Tags = append(v.Tags, tag)

	return nil
}

// findVersionsByTag returns the versions of in carrying tag, oldest first.
func findVersionsByTag(in *Inode, tag string) []*Version {
	var out []*Version

	for _, v := range in.Versions {
		for _, t := range v.Tags {
			if t == tag {
				out = append(out, v)
				break
			}
		}
	}

	return out
}

// findVersionsByDescription returns the versions of in whose description
// equals description, oldest first.
func findVersionsByDescription(in *Inode, description string) []*Version {
	var out []*Version

	for _, v := range in.Versions {
		if v.Description == description {
			out = append(out, v)
		}
	}

	return out
}
