package blockstore

import (
	"fmt"
	"time"
)

// Snapshot is a named, system-wide capture of {inode -> version-at-
// capture-time} (§3, "Snapshot"). Snapshots do not ref-count blocks
// directly; they depend on the captured versions staying live.
type Snapshot struct {
	SnapshotID  int
	Name        string
	Description string
	CreatedAt   time.Time
	TotalSize   int
	Captured    map[InodeID]int
	Trimmed     bool
	Tags        []string
	Group       string

	// operationsSinceLastAtCreation records how many write operations had
	// been counted since the previous snapshot when this one was taken.
	// It is bookkeeping only: ShouldCreateSnapshot reads the store's live
	// operation counter, not this field.
	operationsSinceLastAtCreation int
}

// SnapshotGroup names a set of related snapshots (§9, supplemented from
// original_source/backend/snapshot.c's snapshot_group).
type SnapshotGroup struct {
	Name    string
	Members []int
}

// SnapshotStore holds every snapshot ever taken, in creation order, plus
// the bookkeeping needed for adaptive auto-snapshot granularity (§4.6).
type SnapshotStore struct {
	snapshots      []*Snapshot
	names          map[string]int
	groups         map[string]*SnapshotGroup
	operationCount int
	now            func() time.Time
}

func newSnapshotStore(now func() time.Time) *SnapshotStore {
	return &SnapshotStore{
		names:  make(map[string]int),
		groups: make(map[string]*SnapshotGroup),
		now:    now,
	}
}

// Create records captured[i] = inode_i.current_version for every live
// inode in table, and does not touch any block ref counts (§4.6).
func (s *SnapshotStore) Create(table *InodeTable, name, description string) (*Snapshot, error) {
	if name == "" {
		return nil, fmt.Errorf("name is empty: %w", ErrInvalidArgument)
	}

	if _, exists := s.names[name]; exists {
		return nil, fmt.Errorf("snapshot %q already exists: %w", name, ErrInvalidArgument)
	}

	captured := make(map[InodeID]int)

	totalSize := 0
	for _, id := range table.Live() {
		in, err := table.Get(id)
		if err != nil {
			continue
		}

		captured[id] = in.CurrentVersion
		totalSize += in.Size
	}

	snap := &Snapshot{
		SnapshotID:                    len(s.snapshots) + 1,
		Name:                          name,
		Description:                   description,
		CreatedAt:                     s.now(),
		TotalSize:                     totalSize,
		Captured:                      captured,
		operationsSinceLastAtCreation: s.operationCount,
	}

	s.snapshots = append(s.snapshots, snap)
	s.names[name] = snap.SnapshotID
	s.operationCount = 0

	return snap, nil
}

// Get returns the snapshot with id. Captured only lists inodes that
// existed at capture time; they may have been deleted since (see
// Rollback).
func (s *SnapshotStore) Get(id int) (*Snapshot, error) {
	if id < 1 || id > len(s.snapshots) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}

	return s.snapshots[id-1], nil
}

// Rollback invokes rollbackVersion(i, v) for every (i, v) in the
// snapshot's capture (§4.6); an inode captured at version 0 (before its
// first write) is reset to empty. Inodes created after the snapshot are left
// untouched - this is the source contract (§9): snapshot rollback is
// per-file restoration, not a wholesale state reset.
func (s *SnapshotStore) Rollback(snapID int, table *InodeTable, pool *BlockPool, now time.Time) error {
	snap, err := s.Get(snapID)
	if err != nil {
		return err
	}

	for inodeID, versionID := range snap.Captured {
		in, err := table.Get(inodeID)
		if err != nil {
			// (b): delete does not check snapshot capture, so a captured
			// inode may no longer exist; surfaced, not specially handled.
			return fmt.Errorf("snapshot %d captured inode %d: %w", snapID, inodeID, err)
		}

		if versionID == 0 {
			for _, id := range in.BlockList {
				if err := pool.Free(id); err != nil {
					return fmt.Errorf("releasing current blocks of inode %d: %w", inodeID, err)
				}
			}

			in.BlockList = nil
			in.Size = 0
			in.CurrentVersion = 0
			in.ModifiedAt = now

			continue
		}

		if err := rollbackVersion(in, pool, versionID, now); err != nil {
			return fmt.Errorf("rolling back inode %d to version %d: %w", inodeID, versionID, err)
		}
	}

	return nil
}

// Trim sets the advisory Trimmed flag. Per §4.6/§9 Open Question (a), the
// current design never frees blocks held exclusively by a trimmed
// snapshot; trimming is bookkeeping only.
func (s *SnapshotStore) Trim(id int) error {
	snap, err := s.Get(id)
	if err != nil {
		return err
	}

	snap.Trimmed = true

	return nil
}

// Group assigns name to snapshots, creating the group if needed (§9,
// supplemented from snapshot.c's snapshot_group).
func (s *SnapshotStore) Group(groupName string, snapshotIDs ...int) (*SnapshotGroup, error) {
	for _, id := range snapshotIDs {
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
	}

	g, ok := s.groups[groupName]
	if !ok {
		g = &SnapshotGroup{Name: groupName}
		s.groups[groupName] = g
	}

	for _, id := range snapshotIDs {
		for _, snap := range s.snapshots {
			if snap.SnapshotID == id {
				snap.Group = groupName
			}
		}

		g.Members = append(g.Members, id)
	}

	return g, nil
}

// recordOperation increments the operation counter consulted by
// ShouldCreateSnapshot.
func (s *SnapshotStore) recordOperation() {
	s.operationCount++
}

// ShouldCreateSnapshot reports whether enough operations have elapsed
// since the last snapshot for granularity to recommend taking another
// one (§4.6: FINE = base/2, MEDIUM = base, COARSE = base*2).
func (s *SnapshotStore) ShouldCreateSnapshot(granularity Granularity, baseThreshold int) bool {
	return s.operationCount >= granularity.threshold(baseThreshold)
}

// Importance implements the §4.6 formula:
//
//	age_factor * size_mb * (1 + 0.5*tag_count) * ref_count
//
// where age_factor = 1 / (1 + age_days/30). It is used only for sorting
// and reporting; it has no effect on snapshot lifecycle.
func Importance(snap *Snapshot, now time.Time, refCount int) float64 {
	ageDays := now.Sub(snap.CreatedAt).Hours() / 24
	ageFactor := 1 / (1 + ageDays/30)
	sizeMB := float64(snap.TotalSize) / (1024 * 1024)

	return ageFactor * sizeMB * (1 + 0.5*float64(len(snap.Tags))) * float64(refCount)
}
