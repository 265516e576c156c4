package rhmap

// Entry is the result of a single probe for one key: either the bucket
// that holds the key (occupied) or the place where the key would go
// (vacant). It lets a caller inspect and then mutate without probing twice.
//
// An Entry is consumed by Insert, OrInsert, OrInsertWith or Remove, and
// becomes stale as soon as the map is structurally modified by anything
// else. Using a consumed or stale Entry panics.
type Entry[K comparable, V any] struct {
	m    *Map[K, V]
	key  K
	hash SafeHash
	idx  int
	disp int
	res  probeResult
	mods uint64
	used bool
}

// Entry probes for key and returns its entry.
func (m *Map[K, V]) Entry(key K) *Entry[K, V] {
	m.lazyInit()
	e := &Entry[K, V]{m: m, key: key, hash: m.makeHash(&key), mods: m.mods}
	e.idx, e.disp, e.res = m.table.search(e.hash, &e.key)
	return e
}

func (e *Entry[K, V]) check() {
	if e.used {
		contractViolation("entry for %v used after it was consumed", e.key)
	}
	if e.mods != e.m.mods {
		contractViolation("entry for %v used after the map was modified", e.key)
	}
}

// Key returns the key the entry was created for.
func (e *Entry[K, V]) Key() K {
	return e.key
}

// Occupied reports whether the key is present.
func (e *Entry[K, V]) Occupied() bool {
	e.check()
	return e.res == probeFound
}

// Get returns the stored value of an occupied entry.
func (e *Entry[K, V]) Get() (value V, ok bool) {
	e.check()
	if e.res != probeFound {
		return
	}
	return e.m.table.pairs[e.idx].value, true
}

// ValuePtr returns a pointer to the stored value of an occupied entry, or
// nil for a vacant one.
func (e *Entry[K, V]) ValuePtr() *V {
	e.check()
	if e.res != probeFound {
		return nil
	}
	return &e.m.table.pairs[e.idx].value
}

// AndModify calls fn on the stored value if the entry is occupied.
func (e *Entry[K, V]) AndModify(fn func(value *V)) *Entry[K, V] {
	e.check()
	if e.res == probeFound {
		fn(&e.m.table.pairs[e.idx].value)
		e.check()
	}
	return e
}

// Insert stores value. On an occupied entry the old value is replaced and
// returned; on a vacant one the key is added. The entry is consumed.
func (e *Entry[K, V]) Insert(value V) (previous V, replaced bool) {
	e.check()
	e.used = true
	if e.res == probeFound {
		v := &e.m.table.pairs[e.idx].value
		previous, *v = *v, value
		return previous, true
	}
	e.insertVacant(value)
	return previous, false
}

// OrInsert returns a pointer to the stored value, inserting value first if
// the entry is vacant. The entry is consumed.
func (e *Entry[K, V]) OrInsert(value V) *V {
	e.check()
	e.used = true
	if e.res != probeFound {
		e.idx = e.insertVacant(value)
	}
	return &e.m.table.pairs[e.idx].value
}

// OrInsertWith is like OrInsert but only calls fn when the entry is vacant.
func (e *Entry[K, V]) OrInsertWith(fn func() V) *V {
	e.check()
	if e.res != probeFound {
		value := fn()
		e.check()
		e.used = true
		e.idx = e.insertVacant(value)
	}
	e.used = true
	return &e.m.table.pairs[e.idx].value
}

// Remove deletes an occupied entry's key and returns its value. On a
// vacant entry it does nothing. The entry is consumed.
func (e *Entry[K, V]) Remove() (value V, ok bool) {
	e.check()
	e.used = true
	if e.res != probeFound {
		return
	}
	_, value = e.m.table.remove(e.idx)
	e.m.mods++
	e.m.checkInvariants()
	return value, true
}

// insertVacant materialises the placement found by the probe: a write into
// an empty bucket or a Robin Hood displacement chain starting at a richer
// entry. A table without room is grown first, and in fast mode a placement
// too far from the ideal bucket runs the adaptation policy; both cases
// probe again before writing.
func (e *Entry[K, V]) insertVacant(value V) int {
	m := e.m
	for {
		switch {
		case e.res == probeFound:
			contractViolation("vacant entry for %v found its key on re-probe", e.key)
		case e.res == probeTableEmpty || m.table.size+1 > usableCapacity(m.table.capacity()):
			m.reserve(1)
		case m.adaptive() && e.disp >= m.policy.DisplacementThreshold:
			m.adapt()
			e.hash = m.makeHash(&e.key)
		case e.res == probeVacant:
			m.table.put(e.idx, e.hash, e.key, value)
			m.mods++
			m.checkInvariants()
			return e.idx
		default:
			m.table.robinHood(e.idx, e.hash, e.key, value)
			m.mods++
			m.checkInvariants()
			return e.idx
		}
		e.idx, e.disp, e.res = m.table.search(e.hash, &e.key)
	}
}
