// In-memory bloom filter accelerating FileHMap negative lookups: a key
// absent from the filter is guaranteed absent from the store, so Get
// can skip the bucket scan entirely on a miss. Adapted from the
// teacher's bloom filter, swapped from its FNV double-hashing onto a
// single xxh3 128-bit digest and repurposed to sit in front of bucket
// scans instead of whole-database existence checks.
package mir

import "github.com/zeebo/xxh3"

// Bloom filter sizing constants.
const (
	bloomBits   = 1 << 20 // 128KiB of bits, fixed regardless of bucket count
	bloomHashes = 7
)

// bloom is a fixed-size, never-resized Bloom filter. False positives
// fall through to the real bucket scan; false negatives are impossible.
type bloom struct {
	bits []byte
}

// newBloom returns a zeroed bloom filter.
func newBloom() *bloom {
	return &bloom{bits: make([]byte, bloomBits/8)}
}

// Add records key as present.
func (b *bloom) Add(key string) {
	for _, pos := range bloomPositions(key) {
		b.bits[pos/8] |= 1 << (pos % 8)
	}
}

// Contains reports whether key might be present. false is a definite
// answer; true may be a false positive.
func (b *bloom) Contains(key string) bool {
	for _, pos := range bloomPositions(key) {
		if b.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// Reset clears every bit. Rehash does not call it: the rebuilt store
// gets its own fresh filter.
func (b *bloom) Reset() {
	clear(b.bits)
}

// bloomPositions derives bloomHashes bit positions for key using double
// hashing over a single xxh3 128-bit digest, avoiding bloomHashes
// separate hash passes over the key.
func bloomPositions(key string) [bloomHashes]uint {
	h := xxh3.Hash128([]byte(key))
	a, b := uint(h.Hi), uint(h.Lo)
	nbits := uint(bloomBits)
	var pos [bloomHashes]uint
	for i := range bloomHashes {
		pos[i] = (a + uint(i)*b) % nbits
	}
	return pos
}
