package blockstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InodeTable_Create_Assigns_Lowest_Free_Slot(t *testing.T) {
	t.Parallel()

	table := newInodeTable(3, fixedClock(time.Unix(0, 0)))

	a, err := table.Create("a", PolicyNone)
	require.NoError(t, err)
	assert.Equal(t, InodeID(1), a.ID)

	b, err := table.Create("b", PolicyNone)
	require.NoError(t, err)
	assert.Equal(t, InodeID(2), b.ID)

	require.NoError(t, table.Delete(a.ID))

	c, err := table.Create("c", PolicyNone)
	require.NoError(t, err)
	assert.Equal(t, InodeID(1), c.ID, "the freed lowest slot must be reused before growing further")
}

func Test_InodeTable_Create_Rejects_Duplicate_And_Empty_Names(t *testing.T) {
	t.Parallel()

	table := newInodeTable(2, fixedClock(time.Unix(0, 0)))

	_, err := table.Create("f", PolicyNone)
	require.NoError(t, err)

	_, err = table.Create("f", PolicyNone)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = table.Create("", PolicyNone)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func Test_InodeTable_Create_Returns_NoSpace_When_Full(t *testing.T) {
	t.Parallel()

	table := newInodeTable(1, fixedClock(time.Unix(0, 0)))

	_, err := table.Create("a", PolicyNone)
	require.NoError(t, err)

	_, err = table.Create("b", PolicyNone)
	require.ErrorIs(t, err, ErrNoSpace)
}

func Test_InodeTable_Lookup_Resolves_By_Name(t *testing.T) {
	t.Parallel()

	table := newInodeTable(2, fixedClock(time.Unix(0, 0)))

	created, err := table.Create("report.txt", PolicyNone)
	require.NoError(t, err)

	found, err := table.Lookup("report.txt")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = table.Lookup("missing.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_InodeTable_Live_Returns_Ascending_Ids(t *testing.T) {
	t.Parallel()

	table := newInodeTable(5, fixedClock(time.Unix(0, 0)))

	for _, name := range []string{"a", "b", "c"} {
		_, err := table.Create(name, PolicyNone)
		require.NoError(t, err)
	}

	require.NoError(t, table.Delete(InodeID(2)))

	ids := table.Live()
	assert.Equal(t, []InodeID{1, 3}, ids)
}
