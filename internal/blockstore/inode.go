package blockstore

import (
	"fmt"
	"time"
)

// InodeID identifies an inode. 0 is reserved to mean "empty slot"; live
// inodes are numbered 1..total_inodes (§3).
type InodeID int

// Version is an immutable record of an inode's block list and size at a
// point in time (§3, "Version").
type Version struct {
	VersionID     int
	ParentVersion int
	Size          int
	BlockList     []BlockID
	Strategy      WriteStrategy
	Description   string
	Tags          []string
	CreatedAt     time.Time

	// blockDigests mirrors BlockList position-for-position, captured at
	// version-creation time. It lets rollback verify a materialized
	// shadow belongs to this version rather than to whatever content
	// last occupied a reused block id (§4.5).
	blockDigests []Digest
}

// Inode is a per-file descriptor: name, current block list, and version
// history (§3, "Inode").
type Inode struct {
	ID                 InodeID
	Name               string
	Size               int
	BlockList          []BlockID
	Versions           []*Version
	CurrentVersion     int
	Policy             ImmutabilityPolicy
	ImmutableSince     time.Time
	ExtendedAttributes map[string]string
	CreatedAt          time.Time
	ModifiedAt         time.Time
}

// InodeTable is a fixed-capacity vector of inode slots (§5: neither the
// block pool nor the inode table grows).
type InodeTable struct {
	slots     []*Inode // index 0 is always nil (reserved)
	nameIndex map[string]InodeID
	used      int
	now       func() time.Time
}

func newInodeTable(capacity int, now func() time.Time) *InodeTable {
	return &InodeTable{
		slots:     make([]*Inode, capacity+1),
		nameIndex: make(map[string]InodeID),
		now:       now,
	}
}

// Capacity returns the fixed number of inode slots.
func (t *InodeTable) Capacity() int {
	return len(t.slots) - 1
}

// Used returns the number of live inodes.
func (t *InodeTable) Used() int {
	return t.used
}

func (t *InodeTable) validID(id InodeID) bool {
	return id >= 1 && int(id) < len(t.slots)
}

// Get returns the inode for id, or ErrNotFound if the slot is empty.
func (t *InodeTable) Get(id InodeID) (*Inode, error) {
	if !t.validID(id) {
		return nil, fmt.Errorf("inode %d: %w", id, ErrNotFound)
	}

	in := t.slots[id]
	if in == nil {
		return nil, fmt.Errorf("inode %d: %w", id, ErrNotFound)
	}

	return in, nil
}

// Lookup resolves a name to its inode, enforcing the single-valued
// name->inode mapping (invariant I3).
func (t *InodeTable) Lookup(name string) (*Inode, error) {
	id, ok := t.nameIndex[name]
	if !ok {
		return nil, fmt.Errorf("file %q: %w", name, ErrNotFound)
	}

	return t.Get(id)
}

// Create allocates the first free slot (lowest index wins, mirroring the
// block pool's first-fit policy) and registers name in the lookup index.
func (t *InodeTable) Create(name string, policy ImmutabilityPolicy) (*Inode, error) {
	if name == "" {
		return nil, fmt.Errorf("name is empty: %w", ErrInvalidArgument)
	}

	if _, exists := t.nameIndex[name]; exists {
		return nil, fmt.Errorf("file %q already exists: %w", name, ErrInvalidArgument)
	}

	for i := 1; i < len(t.slots); i++ {
		if t.slots[i] == nil {
			now := t.now()
			in := &Inode{
				ID:                 InodeID(i),
				Name:               name,
				Policy:             policy,
				ExtendedAttributes: make(map[string]string),
				CreatedAt:          now,
				ModifiedAt:         now,
			}

			if policy != PolicyNone {
				in.ImmutableSince = now
			}

			t.slots[i] = in
			t.nameIndex[name] = in.ID
			t.used++

			return in, nil
		}
	}

	return nil, ErrNoSpace
}

// Delete removes an inode's slot and name registration. Callers are
// responsible for releasing the inode's blocks first.
func (t *InodeTable) Delete(id InodeID) error {
	in, err := t.Get(id)
	if err != nil {
		return err
	}

	delete(t.nameIndex, in.Name)
	t.slots[id] = nil
	t.used--

	return nil
}

// Live returns the ids of all live inodes in ascending id order.
func (t *InodeTable) Live() []InodeID {
	ids := make([]InodeID, 0, t.used)

	for i := 1; i < len(t.slots); i++ {
		if t.slots[i] != nil {
			ids = append(ids, InodeID(i))
		}
	}

	return ids
}
