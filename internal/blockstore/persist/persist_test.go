package persist_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/blockstore/internal/blockstore"
	"github.com/calvinalkan/blockstore/internal/blockstore/persist"
	"github.com/calvinalkan/blockstore/internal/fs"
)

func Test_Store_Save_Load_Round_Trips_State(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)

	e, err := blockstore.New(blockstore.Options{TotalBlocks: 10, TotalInodes: 10}, func() time.Time { return now })
	require.NoError(t, err)

	f, err := e.CreateFile("f", blockstore.PolicyNone)
	require.NoError(t, err)
	_, err = e.WriteFile(f, []byte("durable"), blockstore.StrategyCOW)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "engine.state")
	store := persist.New(fs.NewReal(), path)

	require.NoError(t, store.Save(e.Export()))

	loaded, err := store.Load()
	require.NoError(t, err)

	reloaded, err := blockstore.New(blockstore.Options{TotalBlocks: 10, TotalInodes: 10}, func() time.Time { return now })
	require.NoError(t, err)
	require.NoError(t, reloaded.Import(loaded))

	data, err := reloaded.ReadFile(f)
	require.NoError(t, err)
	assert.Equal(t, "durable", string(data))
}

func Test_Store_Load_Returns_NotFound_For_Missing_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.state")
	store := persist.New(fs.NewReal(), path)

	_, err := store.Load()
	require.ErrorIs(t, err, persist.ErrNotFound)
}

func Test_Store_Load_Returns_Corrupt_For_Garbage_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.state")

	real := fs.NewReal()
	require.NoError(t, real.WriteFileAtomic(path, []byte("not a gob stream"), 0o644))

	store := persist.New(real, path)

	_, err := store.Load()
	require.ErrorIs(t, err, persist.ErrCorrupt)
}
