package rhmap

// probeResult is the outcome of a single pass over a key's probe sequence.
type probeResult uint8

const (
	// probeFound: the bucket holds the key.
	probeFound probeResult = iota
	// probeVacant: the key is absent and the bucket is empty.
	probeVacant
	// probeSteal: the key is absent and the bucket holds a richer entry,
	// which an insertion must displace.
	probeSteal
	// probeTableEmpty: the table has no buckets yet.
	probeTableEmpty
)

// search walks the probe sequence of hash once. It stops at the key, at an
// empty bucket, or at the first entry that sits closer to its ideal bucket
// than the key would; past that entry the key cannot be stored. disp is
// the key's displacement at idx.
func (t *rawTable[K, V]) search(hash SafeHash, key *K) (idx, disp int, res probeResult) {
	if t.capacity() == 0 {
		return 0, 0, probeTableEmpty
	}
	b := t.probe(hash)
	for ; ; disp++ {
		if b.peek() == bucketEmpty {
			return b.index(), disp, probeVacant
		}
		if b.displacement() < disp {
			return b.index(), disp, probeSteal
		}
		if b.hash() == hash && *b.key() == *key {
			return b.index(), disp, probeFound
		}
		if disp > t.size {
			contractViolation("probe passed %d entries in a table holding %d", disp, t.size)
		}
		b.next()
	}
}

// find returns the bucket holding key, or -1.
func (t *rawTable[K, V]) find(hash SafeHash, key *K) int {
	idx, _, res := t.search(hash, key)
	if res != probeFound {
		return -1
	}
	return idx
}

// insertOrReplace stores key or overwrites the value already stored under
// it. A positive limit bounds the number of buckets the probe may visit;
// when the limit is reached without resolving, nothing is written and ok
// is false. The table must have room for one more entry.
func (t *rawTable[K, V]) insertOrReplace(
	hash SafeHash,
	key K,
	value V,
	limit int,
) (idx int, previous V, replaced, ok bool) {
	b := t.probe(hash)
	for disp := 0; ; disp++ {
		if limit > 0 && disp == limit {
			return -1, previous, false, false
		}
		if b.peek() == bucketEmpty {
			t.put(b.index(), hash, key, value)
			return b.index(), previous, false, true
		}
		if b.hash() == hash && *b.key() == key {
			v := b.value()
			previous, *v = *v, value
			return b.index(), previous, true, true
		}
		if b.displacement() < disp {
			t.robinHood(b.index(), hash, key, value)
			return b.index(), previous, false, true
		}
		if disp > t.size {
			contractViolation("probe passed %d entries in a table holding %d", disp, t.size)
		}
		b.next()
	}
}

// insertUnique stores an entry whose key is known to be absent.
func (t *rawTable[K, V]) insertUnique(hash SafeHash, key K, value V) int {
	idx, _, _, _ := t.insertOrReplace(hash, key, value, 0)
	return idx
}

// robinHood places an entry in the full bucket idx, whose occupant is
// richer, and carries the evicted occupant forward: it takes the first
// empty bucket or, again, the first bucket held by an entry richer than
// itself, and so on until an empty bucket ends the chain.
func (t *rawTable[K, V]) robinHood(idx int, hash SafeHash, key K, value V) {
	start := idx
	for {
		disp := t.displacementAt(idx)
		hash, t.hashes[idx] = t.hashes[idx], hash
		key, t.pairs[idx].key = t.pairs[idx].key, key
		value, t.pairs[idx].value = t.pairs[idx].value, value
		for {
			idx = (idx + 1) & t.mask
			disp++
			if idx == start {
				contractViolation("displacement chain wrapped around a table of %d buckets",
					t.capacity())
			}
			if t.hashes[idx].isEmpty() {
				t.put(idx, hash, key, value)
				return
			}
			if t.displacementAt(idx) < disp {
				break
			}
		}
	}
}

// remove empties the full bucket idx and shifts the following run of
// displaced entries back by one slot, so no tombstone is left behind. The
// shift stops at an empty bucket or at an entry already in its ideal one.
func (t *rawTable[K, V]) remove(idx int) (K, V) {
	_, key, value := t.take(idx)
	gap := idx
	for {
		next := (gap + 1) & t.mask
		if t.hashes[next].isEmpty() || t.displacementAt(next) == 0 {
			break
		}
		t.hashes[gap], t.pairs[gap] = t.hashes[next], t.pairs[next]
		t.hashes[next], t.pairs[next] = emptyHash, pair[K, V]{}
		gap = next
	}
	return key, value
}
