package blockstore

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by engine operations, one per error kind in the
// engine's error taxonomy. Callers should use [errors.Is] to check error
// kinds; wrapped context is added with fmt.Errorf("...: %w", ...).
var (
	// ErrNotFound indicates a referenced inode, version, snapshot, or block
	// does not exist.
	ErrNotFound = errors.New("blockstore: not found")

	// ErrNoSpace indicates the block pool or inode table is exhausted.
	ErrNoSpace = errors.New("blockstore: no space")

	// ErrPolicyDenied indicates a write or delete was forbidden by an
	// inode's immutability policy.
	ErrPolicyDenied = errors.New("blockstore: policy denied")

	// ErrInvalidArgument indicates a malformed request: an empty or
	// oversized name, a nil buffer, or a version/snapshot id out of range.
	ErrInvalidArgument = errors.New("blockstore: invalid argument")

	// ErrCorruption indicates an invariant violation detected at runtime,
	// such as a version pointing at a freed block whose content could not
	// be reconstructed.
	ErrCorruption = errors.New("blockstore: corruption")

	// errMismatchedCapacity indicates a loaded [State] was captured from
	// an engine with different block/inode capacities than the one
	// loading it.
	errMismatchedCapacity = fmt.Errorf("blockstore: state capacity mismatch: %w", ErrInvalidArgument)
)
