package rhmap

// SafeHash is a 64-bit hash value that never equals emptyHash, the marker
// of a vacant bucket. The only way to build one is newSafeHash.
type SafeHash uint64

const (
	// emptyHash marks a bucket that holds nothing.
	emptyHash SafeHash = 0

	// safeHashBit is forced on every stored hash.
	safeHashBit = uint64(1) << 63
)

// newSafeHash maps a raw hasher output away from the empty sentinel by
// forcing the top bit. The low bits, which select the ideal bucket, are
// preserved.
//
//go:nosplit
func newSafeHash(raw uint64) SafeHash {
	return SafeHash(raw | safeHashBit)
}

// Uint64 returns the stored bit pattern.
func (h SafeHash) Uint64() uint64 {
	return uint64(h)
}

//go:nosplit
func (h SafeHash) isEmpty() bool {
	return h == emptyHash
}

// idealIndex returns the bucket a key with this hash would occupy without
// collisions. mask is capacity-1 and capacity is a power of two.
//
//go:nosplit
func (h SafeHash) idealIndex(mask int) int {
	return int(uint64(h) & uint64(mask))
}
