// Package blockstore implements a versioned, snapshotting, deduplicating
// block storage engine for small files.
//
// The engine manages a fixed-size pool of fixed-size data blocks and a
// fixed-size inode table, and layers two independent point-in-time
// mechanisms on top: per-file versions (captured on every write) and
// system-wide snapshots (a named {file -> version} tuple). Writes
// deduplicate on content digest; rollback restores prior bytes without
// disturbing references held by other versions or snapshots.
//
// # Concurrency
//
// The engine follows a single-threaded cooperative model: every exported
// [Engine] method runs to completion before the next begins, and there is
// no internal locking. Callers sharing an [Engine] across goroutines must
// provide their own external mutual exclusion around every call.
package blockstore

// BlockSize is the fixed size, in bytes, of every block in the pool.
const BlockSize = 4096

// HashSize is the fixed size, in bytes, of a content digest.
const HashSize = 32

// MaxTagsPerVersion bounds the number of tags a single version may carry.
const MaxTagsPerVersion = 10
