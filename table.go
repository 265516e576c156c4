package rhmap

import (
	"math/bits"
	"unsafe"

	"github.com/cockroachdb/errors"
)

const (
	// minTableLen is the smallest non-empty bucket array: four cache lines
	// of hash words.
	minTableLen = int(4 * CacheLineSize / unsafe.Sizeof(emptyHash))

	// A table of n buckets holds at most ceil(n*loadNum/loadDen) entries.
	loadNum = 10
	loadDen = 11
)

// usableCapacity returns how many entries a table of tableLen buckets takes
// before it must grow.
func usableCapacity(tableLen int) int {
	return (tableLen*loadNum + loadDen - 1) / loadDen
}

// calcTableLen returns the bucket count for a table that must hold n
// entries: zero for n == 0, otherwise a power of two no smaller than
// minTableLen.
func calcTableLen(n int) int {
	if n <= 0 {
		return 0
	}
	tableLen := n * loadDen / loadNum
	if tableLen < n {
		contractViolation("capacity overflow for %d entries", n)
	}
	return max(minTableLen, nextPowOf2(tableLen))
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	shift := bits.Len(uint(n - 1))
	if shift >= bits.UintSize-1 {
		contractViolation("capacity overflow for %d buckets", n)
	}
	return 1 << shift
}

// pair is the payload of a full bucket.
type pair[K comparable, V any] struct {
	key   K
	value V
}

// rawTable is the bucket array. hashes[i] == emptyHash marks bucket i as
// empty; otherwise pairs[i] holds the entry stored under that hash.
// The two slices always have the same power-of-two length.
type rawTable[K comparable, V any] struct {
	hashes []SafeHash
	pairs  []pair[K, V]
	mask   int
	size   int
}

func newRawTable[K comparable, V any](tableLen int) rawTable[K, V] {
	if tableLen == 0 {
		return rawTable[K, V]{}
	}
	if tableLen&(tableLen-1) != 0 {
		contractViolation("table length %d is not a power of two", tableLen)
	}
	return rawTable[K, V]{
		hashes: make([]SafeHash, tableLen),
		pairs:  make([]pair[K, V], tableLen),
		mask:   tableLen - 1,
	}
}

func (t *rawTable[K, V]) capacity() int {
	return len(t.hashes)
}

// displacementAt returns how far the entry in the full bucket idx sits from
// its ideal bucket, wrapping around the end of the array.
//
//go:nosplit
func (t *rawTable[K, V]) displacementAt(idx int) int {
	return (idx - t.hashes[idx].idealIndex(t.mask)) & t.mask
}

// put stores an entry in the empty bucket idx.
func (t *rawTable[K, V]) put(idx int, hash SafeHash, key K, value V) {
	if !t.hashes[idx].isEmpty() {
		contractViolation("put into full bucket %d", idx)
	}
	t.hashes[idx] = hash
	t.pairs[idx] = pair[K, V]{key: key, value: value}
	t.size++
}

// take empties the full bucket idx and returns what it held. The caller
// must restore the probe chains, see remove.
func (t *rawTable[K, V]) take(idx int) (SafeHash, K, V) {
	hash := t.hashes[idx]
	if hash.isEmpty() {
		contractViolation("take from empty bucket %d", idx)
	}
	p := t.pairs[idx]
	t.hashes[idx] = emptyHash
	t.pairs[idx] = pair[K, V]{}
	t.size--
	return hash, p.key, p.value
}

// clear empties every bucket and keeps the arrays.
func (t *rawTable[K, V]) clear() {
	clear(t.hashes)
	clear(t.pairs)
	t.size = 0
}

// resized allocates a table of tableLen buckets and moves every entry into
// it under its stored hash. The receiver is left untouched, so a caller
// swaps the result in only once the copy is complete.
func (t *rawTable[K, V]) resized(tableLen int) rawTable[K, V] {
	if tableLen != 0 && usableCapacity(tableLen) < t.size {
		contractViolation("resize to %d buckets cannot hold %d entries", tableLen, t.size)
	}
	nt := newRawTable[K, V](tableLen)
	for i, h := range t.hashes {
		if !h.isEmpty() {
			nt.insertUnique(h, t.pairs[i].key, t.pairs[i].value)
		}
	}
	return nt
}

// clone returns a deep copy of the bucket arrays.
func (t *rawTable[K, V]) clone() rawTable[K, V] {
	if t.capacity() == 0 {
		return rawTable[K, V]{}
	}
	return rawTable[K, V]{
		hashes: append([]SafeHash(nil), t.hashes...),
		pairs:  append([]pair[K, V](nil), t.pairs...),
		mask:   t.mask,
		size:   t.size,
	}
}

// firstEmpty returns the index of some empty bucket, or -1 if there is none.
func (t *rawTable[K, V]) firstEmpty() int {
	for i, h := range t.hashes {
		if h.isEmpty() {
			return i
		}
	}
	return -1
}

// validate walks the whole array and checks the size counter, that every
// probe chain is contiguous, and the Robin Hood ordering between
// neighbours: an entry is never more than one slot poorer than the entry
// in the bucket before it.
func (t *rawTable[K, V]) validate() error {
	if t.capacity() == 0 {
		if t.size != 0 {
			return errors.Newf("empty table reports %d entries", t.size)
		}
		return nil
	}
	if len(t.pairs) != len(t.hashes) || t.mask != len(t.hashes)-1 {
		return errors.Newf("table arrays disagree: %d hashes, %d pairs, mask %d",
			len(t.hashes), len(t.pairs), t.mask)
	}
	seen := make(map[K]int, t.size)
	count := 0
	for i, h := range t.hashes {
		if h.isEmpty() {
			continue
		}
		count++
		if h.Uint64()&safeHashBit == 0 {
			return errors.Newf("bucket %d holds an unmarked hash %#x", i, h.Uint64())
		}
		if j, dup := seen[t.pairs[i].key]; dup {
			return errors.Newf("buckets %d and %d hold the same key", j, i)
		}
		seen[t.pairs[i].key] = i
		d := t.displacementAt(i)
		if d == 0 {
			continue
		}
		prev := (i - 1) & t.mask
		if t.hashes[prev].isEmpty() {
			return errors.Newf("bucket %d has displacement %d after an empty bucket", i, d)
		}
		if pd := t.displacementAt(prev); d > pd+1 {
			return errors.Newf("bucket %d has displacement %d after displacement %d", i, d, pd)
		}
	}
	if count != t.size {
		return errors.Newf("counted %d entries, size is %d", count, t.size)
	}
	if count > 0 && count >= t.capacity() {
		return errors.Newf("no empty bucket left in a table of %d", t.capacity())
	}
	return nil
}

// bucketState is what a cursor observes at its position.
type bucketState uint8

const (
	bucketEmpty bucketState = iota
	bucketFull
)

// bucket is a cursor over a rawTable. It walks the linear probe sequence
// starting at some ideal index, wrapping at the end of the array.
type bucket[K comparable, V any] struct {
	t     *rawTable[K, V]
	idx   int
	steps int
}

// probe returns a cursor at the ideal bucket of hash.
func (t *rawTable[K, V]) probe(hash SafeHash) bucket[K, V] {
	return bucket[K, V]{t: t, idx: hash.idealIndex(t.mask)}
}

func (b *bucket[K, V]) index() int {
	return b.idx
}

func (b *bucket[K, V]) peek() bucketState {
	if b.t.hashes[b.idx].isEmpty() {
		return bucketEmpty
	}
	return bucketFull
}

func (b *bucket[K, V]) hash() SafeHash {
	return b.t.hashes[b.idx]
}

func (b *bucket[K, V]) key() *K {
	return &b.t.pairs[b.idx].key
}

func (b *bucket[K, V]) value() *V {
	return &b.t.pairs[b.idx].value
}

func (b *bucket[K, V]) displacement() int {
	return b.t.displacementAt(b.idx)
}

// next advances one bucket. Coming back to the starting bucket means no
// empty bucket was met, which load-factor discipline rules out.
func (b *bucket[K, V]) next() {
	b.idx = (b.idx + 1) & b.t.mask
	b.steps++
	if b.steps >= b.t.capacity() {
		contractViolation("probe wrapped around a table of %d buckets holding %d entries",
			b.t.capacity(), b.t.size)
	}
}
