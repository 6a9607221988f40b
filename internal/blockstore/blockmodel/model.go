// Package blockmodel provides a deliberately simple, in-memory reference
// model of the engine's publicly observable write/read/version/snapshot
// behavior (§8, testable properties).
//
// The model does not allocate blocks or track reference counts; it
// stores each file's full byte history directly. It is intentionally
// easy to audit: it favors clarity over mirroring the real engine's
// storage layout, the same way the teacher's pkg/slotcache/model
// favors clarity over mirroring slotcache's on-disk format.
package blockmodel

import "github.com/calvinalkan/blockstore/internal/blockstore"

// FileState is one modeled file: its current bytes and the byte image
// of every version ever created for it (oldest first, 1-based by
// position).
type FileState struct {
	Bytes    []byte
	Versions [][]byte
	Policy   blockstore.ImmutabilityPolicy
}

// SnapshotState is one modeled snapshot: the byte image captured for
// every file that existed at the time it was taken.
type SnapshotState struct {
	Name     string
	Captured map[string][]byte
}

// Model mirrors exactly the engine operations blockmodel exercises:
// create, write (append-semantic), read, rollback-version,
// create-snapshot, rollback-snapshot.
type Model struct {
	files     map[string]*FileState
	snapshots []SnapshotState
}

// New returns an empty model.
func New() *Model {
	return &Model{files: make(map[string]*FileState)}
}

// CreateFile registers name with an empty byte history.
func (m *Model) CreateFile(name string, policy blockstore.ImmutabilityPolicy) {
	m.files[name] = &FileState{Policy: policy}
}

// Write appends data to name's current bytes and appends a new
// version snapshot of the result, mirroring the real write path's
// append-then-auto-version contract (§4.3, §9).
func (m *Model) Write(name string, data []byte) error {
	f := m.files[name]

	if err := checkWrite(f.Policy, len(f.Bytes)); err != nil {
		return err
	}

	f.Bytes = append(append([]byte(nil), f.Bytes...), data...)

	snapshot := append([]byte(nil), f.Bytes...)
	f.Versions = append(f.Versions, snapshot)

	return nil
}

func checkWrite(policy blockstore.ImmutabilityPolicy, currentSize int) error {
	switch policy {
	case blockstore.PolicyReadOnly:
		return blockstore.ErrPolicyDenied
	case blockstore.PolicyWORM:
		if currentSize != 0 {
			return blockstore.ErrPolicyDenied
		}

		return nil
	default:
		return nil
	}
}

// Read returns name's current bytes.
func (m *Model) Read(name string) []byte {
	return append([]byte(nil), m.files[name].Bytes...)
}

// RollbackVersion restores name's current bytes to its versionID-th
// recorded snapshot (1-based).
func (m *Model) RollbackVersion(name string, versionID int) {
	f := m.files[name]
	f.Bytes = append([]byte(nil), f.Versions[versionID-1]...)
}

// CreateSnapshot captures every currently-known file's current bytes
// under name.
func (m *Model) CreateSnapshot(name string) {
	captured := make(map[string][]byte, len(m.files))

	for fname, f := range m.files {
		captured[fname] = append([]byte(nil), f.Bytes...)
	}

	m.snapshots = append(m.snapshots, SnapshotState{Name: name, Captured: captured})
}

// RollbackSnapshot restores every file captured by name to its
// captured bytes; files created afterward are untouched (§4.6, §9).
func (m *Model) RollbackSnapshot(name string) {
	for _, s := range m.snapshots {
		if s.Name != name {
			continue
		}

		for fname, bytes := range s.Captured {
			if f, ok := m.files[fname]; ok {
				f.Bytes = append([]byte(nil), bytes...)
			}
		}

		return
	}
}

// DeleteFile removes name from the model.
func (m *Model) DeleteFile(name string) {
	delete(m.files, name)
}
