package blockstore

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CreateVersion_Copies_BlockList_Without_Changing_RefCounts(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	pool := newBlockPool(2, fixedClock(now))
	table := newInodeTable(1, fixedClock(now))

	in, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	id, err := pool.Allocate(BlockData)
	require.NoError(t, err)

	buf := make([]byte, BlockSize)
	copy(buf, "hello")
	require.NoError(t, pool.Write(id, buf))

	in.BlockList = []BlockID{id}
	in.Size = len("hello")

	v := createVersion(in, pool, "manual", StrategyCOW, now)

	assert.Equal(t, 1, v.VersionID)
	assert.Equal(t, []BlockID{id}, v.BlockList)
	assert.Equal(t, in.Size, v.Size)
	assert.Equal(t, 1, in.CurrentVersion)

	b, err := pool.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, b.RefCount, "create_version must not bump ref counts (§4.5 step 1)")

	// Mutating the inode's block list afterwards must not affect the
	// version's copy.
	in.BlockList = append(in.BlockList, BlockID(99))
	assert.Equal(t, []BlockID{id}, v.BlockList)
}

func Test_RollbackVersion_Restores_Bytes_And_Frees_Newer_Blocks(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	pool := newBlockPool(4, fixedClock(now))
	table := newInodeTable(1, fixedClock(now))

	in, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	helloID, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	helloBuf := make([]byte, BlockSize)
	copy(helloBuf, "hello")
	require.NoError(t, pool.Write(helloID, helloBuf))

	in.BlockList = []BlockID{helloID}
	in.Size = len("hello")
	v1 := createVersion(in, pool, "v1", StrategyCOW, now)

	worldID, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	worldBuf := make([]byte, BlockSize)
	copy(worldBuf, "world")
	require.NoError(t, pool.Write(worldID, worldBuf))

	in.BlockList = append(in.BlockList, worldID)
	in.Size += len("world")
	createVersion(in, pool, "v2", StrategyCOW, now)

	require.NoError(t, rollbackVersion(in, pool, v1.VersionID, now))

	assert.Equal(t, []BlockID{helloID}, in.BlockList)
	assert.Equal(t, len("hello"), in.Size)
	assert.Equal(t, v1.VersionID, in.CurrentVersion)

	worldBlock, err := pool.Get(worldID)
	require.NoError(t, err)
	assert.Equal(t, BlockFree, worldBlock.Kind, "the block only the superseded current list held must be freed")

	helloBlock, err := pool.Get(helloID)
	require.NoError(t, err)
	assert.Equal(t, BlockData, helloBlock.Kind)
	assert.Equal(t, 1, helloBlock.RefCount)
}

func Test_RollbackVersion_Reconstructs_From_Shadow_When_Block_Was_Freed(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	pool := newBlockPool(4, fixedClock(now))
	table := newInodeTable(1, fixedClock(now))

	in, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	helloID, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	helloBuf := make([]byte, BlockSize)
	copy(helloBuf, "hello")
	require.NoError(t, pool.Write(helloID, helloBuf))

	in.BlockList = []BlockID{helloID}
	in.Size = len("hello")
	v1 := createVersion(in, pool, "v1", StrategyCOW, now)

	worldID, err := pool.Allocate(BlockData)
	require.NoError(t, err)
	worldBuf := make([]byte, BlockSize)
	copy(worldBuf, "world")
	require.NoError(t, pool.Write(worldID, worldBuf))

	in.BlockList = append(in.BlockList, worldID)
	in.Size += len("world")
	v2 := createVersion(in, pool, "v2", StrategyCOW, now)

	// Rolling back to v1 frees worldID since nothing but the
	// now-superseded current list held it.
	require.NoError(t, rollbackVersion(in, pool, v1.VersionID, now))

	// Rolling forward to v2 must reconstruct worldID's bytes from the
	// preserved shadow rather than fail.
	require.NoError(t, rollbackVersion(in, pool, v2.VersionID, now))

	assert.Equal(t, in.Size, len("hello")+len("world"))

	out := make([]byte, BlockSize)
	require.NoError(t, pool.Read(in.BlockList[len(in.BlockList)-1], out))
	assert.Equal(t, worldBuf, out)
}

func Test_RollbackVersion_Rejects_Out_Of_Range_VersionID(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	pool := newBlockPool(1, fixedClock(now))
	table := newInodeTable(1, fixedClock(now))

	in, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	err = rollbackVersion(in, pool, 1, now)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func Test_AddVersionTag_Is_Bounded_And_Deduplicates(t *testing.T) {
	t.Parallel()

	v := &Version{VersionID: 1}

	for i := 0; i < MaxTagsPerVersion; i++ {
		require.NoError(t, addVersionTag(v, string(rune('a'+i))))
	}

	err := addVersionTag(v, "overflow")
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, addVersionTag(v, "a"))
	assert.Len(t, v.Tags, MaxTagsPerVersion, "re-adding an existing tag must not grow the list")
}

func Test_FindVersionsByTag_And_Description(t *testing.T) {
	t.Parallel()

	v1 := &Version{VersionID: 1, Description: "auto-version from write", Tags: []string{"release"}}
	v2 := &Version{VersionID: 2, Description: "manual checkpoint"}
	in := &Inode{Versions: []*Version{v1, v2}}

	if diff := cmp.Diff([]*Version{v1}, findVersionsByTag(in, "release")); diff != "" {
		t.Errorf("findVersionsByTag mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]*Version{v2}, findVersionsByDescription(in, "manual checkpoint")); diff != "" {
		t.Errorf("findVersionsByDescription mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, findVersionsByTag(in, "missing"))
}
