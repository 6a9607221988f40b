package blockstore

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Digest is a fixed-width content digest over a block-sized buffer.
//
// Digest equality is treated as suspected equality only: the dedup index
// (§4.3) resolves it against the canonical block's live content digest
// before treating two blocks as interchangeable, since a fast
// non-cryptographic hash like this one admits collisions.
type Digest [HashSize]byte

// ComputeDigest hashes buf into a [Digest].
//
// Four independent 64-bit xxhash passes (each over buf with a distinct
// one-byte domain-separation prefix) are concatenated to fill the 32-byte
// digest; xxhash itself only produces a 64-bit sum.
func ComputeDigest(buf []byte) Digest {
	var d Digest

	for lane := range 4 {
		h := xxhash.New()
		h.Write([]byte{byte(lane)})
		h.Write(buf)
		binary.BigEndian.PutUint64(d[lane*8:], h.Sum64())
	}

	return d
}

// EqualDigest reports whether two digests are byte-for-byte equal.
func EqualDigest(a, b Digest) bool {
	return a == b
}

// IsZero reports whether d is the all-zero value, used as the sentinel
// for a FREE block. It is not the digest of empty content.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
