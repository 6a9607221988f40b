package blockstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SnapshotStore_Create_Captures_Current_Versions(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	pool := newBlockPool(2, fixedClock(now))
	table := newInodeTable(2, fixedClock(now))
	snaps := newSnapshotStore(fixedClock(now))

	in, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	id, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	buf := make([]byte, BlockSize)
	copy(buf, "A")
	require.NoError(t, pool.Write(id, buf))
	in.BlockList = []BlockID{id}
	in.Size = 1
	createVersion(in, pool, "v1", StrategyCOW, now)

	snap, err := snaps.Create(table, "S1", "first snapshot")
	require.NoError(t, err)

	assert.Equal(t, map[InodeID]int{in.ID: in.CurrentVersion}, snap.Captured)
	assert.Equal(t, 1, snap.TotalSize)
}

func Test_SnapshotStore_Create_Rejects_Duplicate_Name(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	table := newInodeTable(1, fixedClock(now))
	snaps := newSnapshotStore(fixedClock(now))

	_, err := snaps.Create(table, "S1", "")
	require.NoError(t, err)

	_, err = snaps.Create(table, "S1", "")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func Test_SnapshotStore_Rollback_Restores_Captured_Inodes_Only(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	pool := newBlockPool(4, fixedClock(now))
	table := newInodeTable(2, fixedClock(now))
	snaps := newSnapshotStore(fixedClock(now))

	f, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	aID, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	aBuf := make([]byte, BlockSize)
	copy(aBuf, "A")
	require.NoError(t, pool.Write(aID, aBuf))
	f.BlockList = []BlockID{aID}
	f.Size = 1
	createVersion(f, pool, "v1", StrategyCOW, now)

	snap, err := snaps.Create(table, "S1", "")
	require.NoError(t, err)

	bID, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	bBuf := make([]byte, BlockSize)
	copy(bBuf, "B")
	require.NoError(t, pool.Write(bID, bBuf))
	f.BlockList = append(f.BlockList, bID)
	f.Size += 1
	createVersion(f, pool, "v2", StrategyCOW, now)

	// A file created after the snapshot must be left untouched by
	// rollback (§4.6, §9).
	g, err := table.Create("g", PolicyNone)
	require.NoError(t, err)
	g.BlockList = []BlockID{}

	require.NoError(t, snaps.Rollback(snap.SnapshotID, table, pool, now))

	assert.Equal(t, []BlockID{aID}, f.BlockList)
	assert.Equal(t, 1, f.Size)
	assert.Empty(t, g.BlockList)
}

func Test_SnapshotStore_Trim_Sets_Advisory_Flag(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	table := newInodeTable(1, fixedClock(now))
	snaps := newSnapshotStore(fixedClock(now))

	snap, err := snaps.Create(table, "S1", "")
	require.NoError(t, err)

	require.NoError(t, snaps.Trim(snap.SnapshotID))
	assert.True(t, snap.Trimmed)
}

func Test_SnapshotStore_Group_Assigns_Members(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	table := newInodeTable(1, fixedClock(now))
	snaps := newSnapshotStore(fixedClock(now))

	s1, err := snaps.Create(table, "S1", "")
	require.NoError(t, err)
	s2, err := snaps.Create(table, "S2", "")
	require.NoError(t, err)

	group, err := snaps.Group("weekly", s1.SnapshotID, s2.SnapshotID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{s1.SnapshotID, s2.SnapshotID}, group.Members)
	assert.Equal(t, "weekly", s1.Group)
	assert.Equal(t, "weekly", s2.Group)
}

func Test_ShouldCreateSnapshot_Scales_With_Granularity(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	snaps := newSnapshotStore(fixedClock(now))

	for i := 0; i < 50; i++ {
		snaps.recordOperation()
	}

	assert.True(t, snaps.ShouldCreateSnapshot(GranularityFine, 100))
	assert.False(t, snaps.ShouldCreateSnapshot(GranularityMedium, 100))
	assert.False(t, snaps.ShouldCreateSnapshot(GranularityCoarse, 100))
}

func Test_Importance_Decreases_With_Age(t *testing.T) {
	t.Parallel()

	created := time.Unix(0, 0)
	snap := &Snapshot{CreatedAt: created, TotalSize: BlockSize, Tags: []string{"a"}}

	fresh := Importance(snap, created, 1)
	aged := Importance(snap, created.Add(60*24*time.Hour), 1)

	assert.Greater(t, fresh, aged)
}
