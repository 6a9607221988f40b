// Package persist saves and loads [blockstore.State] to/from disk_path
// (§6: "A persistence format is not mandated by this core; if
// implemented, it must round-trip the block metadata array, block data
// for non-FREE blocks, the inode table, and the metrics struct").
//
// It is grounded on the teacher repo's own gob-based ticket cache
// (root cache.go) for the encoding, and on its internal/fs package -
// adapted here rather than the fault-injecting variants, since no
// SPEC_FULL component exercises simulated I/O failure - for atomic
// writes and cross-process locking.
package persist

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/calvinalkan/blockstore/internal/blockstore"
	"github.com/calvinalkan/blockstore/internal/fs"
)

// ErrNotFound is returned by [Load] when disk_path does not exist.
var ErrNotFound = errors.New("persist: state file not found")

// ErrCorrupt is returned by [Load] when disk_path cannot be decoded.
var ErrCorrupt = errors.New("persist: state file corrupted")

// Store saves and loads engine state through an [fs.FS], guarding
// every access with an [fs.Locker] so a concurrent save/load pair from
// two processes never interleaves (§5 notes the core itself assumes a
// single caller; Store adds the cross-process guard a disk-backed
// deployment needs on top of that).
type Store struct {
	filesystem fs.FS
	path       string
}

// New returns a Store that persists to path using filesystem.
func New(filesystem fs.FS, path string) *Store {
	return &Store{filesystem: filesystem, path: path}
}

// Save gob-encodes state and writes it to the store's path atomically
// (temp file + rename, via [fs.FS.WriteFileAtomic]), holding an
// exclusive lock for the duration.
func (s *Store) Save(state blockstore.State) error {
	lock, err := s.filesystem.Lock(s.path)
	if err != nil {
		return fmt.Errorf("locking %s: %w", s.path, err)
	}
	defer func() { _ = lock.Close() }()

	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := s.filesystem.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}

	return nil
}

// Load reads and gob-decodes the state file at the store's path.
func (s *Store) Load() (blockstore.State, error) {
	lock, err := s.filesystem.Lock(s.path)
	if err != nil {
		return blockstore.State{}, fmt.Errorf("locking %s: %w", s.path, err)
	}
	defer func() { _ = lock.Close() }()

	exists, err := s.filesystem.Exists(s.path)
	if err != nil {
		return blockstore.State{}, fmt.Errorf("checking %s: %w", s.path, err)
	}

	if !exists {
		return blockstore.State{}, fmt.Errorf("%s: %w", s.path, ErrNotFound)
	}

	data, err := s.filesystem.ReadFile(s.path)
	if err != nil {
		return blockstore.State{}, fmt.Errorf("reading %s: %w", s.path, err)
	}

	var state blockstore.State

	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return blockstore.State{}, fmt.Errorf("%s: %w: %w", s.path, ErrCorrupt, err)
	}

	return state, nil
}
