// Package rhmap implements a Robin Hood hash map that defends itself
// against hash flooding.
//
// Map is an open-addressing table with linear probing, Robin Hood
// displacement on insertion and backward-shift deletion. Maps keyed by
// fixed-width integers or pointers start with a near-free XOR hash and
// watch probe lengths as they insert: a probe that runs past the policy's
// displacement threshold either grows the table, when the table is loaded
// enough to explain it, or switches the map for good to keyed SipHash and
// rehashes every entry. Maps over any other key type hash with SipHash from
// the start.
//
// A Map is not safe for concurrent use: mutations need exclusive access,
// and reads may only run concurrently with other reads.
package rhmap

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Map is a hash map from K to V.
//
// The zero Map is empty and ready for use. A Map must not be copied after
// first use; use Clone.
type Map[K comparable, V any] struct {
	table    rawTable[K, V]
	state    HashState
	writeKey keyWriter[K]
	kind     keyKind
	policy   Policy
	logger   *zap.Logger

	// mods counts structural modifications: anything that adds, removes
	// or moves an entry. Entries and iterators use it to detect misuse.
	mods     uint64
	growths  uint32
	rehashes uint32
}

// New creates an empty map. No buckets are allocated until the first
// insertion unless WithPresize is given.
func New[K comparable, V any](options ...func(*MapConfig)) *Map[K, V] {
	m := &Map[K, V]{}
	m.init(options...)
	return m
}

// WithCapacity creates a map that holds at least n entries before it
// grows.
func WithCapacity[K comparable, V any](n int, options ...func(*MapConfig)) *Map[K, V] {
	return New[K, V](append(options, WithPresize(n))...)
}

// Init resets the map to an empty one built with the given options.
func (m *Map[K, V]) Init(options ...func(*MapConfig)) {
	*m = Map[K, V]{}
	m.init(options...)
}

func (m *Map[K, V]) init(options ...func(*MapConfig)) {
	cfg := MapConfig{policy: DefaultPolicy()}
	for _, opt := range options {
		opt(&cfg)
	}

	m.writeKey, m.kind = defaultKeyWriter[K]()
	if cfg.seeded {
		m.state = newSeededHashState(cfg.k0, cfg.k1)
	} else {
		m.state = NewFastHashState()
	}
	if m.kind != scalarKey || cfg.safeHashing {
		m.state.SwitchToSafeHashing()
	}
	m.policy = cfg.policy
	m.logger = cfg.logger
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if cfg.sizeHint > 0 {
		m.table = newRawTable[K, V](calcTableLen(cfg.sizeHint))
	}
}

func (m *Map[K, V]) lazyInit() {
	if m.writeKey == nil {
		m.init()
	}
}

func (m *Map[K, V]) makeHash(key *K) SafeHash {
	return m.makeHashWith(&m.state, key)
}

func (m *Map[K, V]) makeHashWith(state *HashState, key *K) SafeHash {
	h := state.Hasher()
	m.writeKey(&h, key)
	return newSafeHash(h.Sum64())
}

// adaptive reports whether insertions must watch their probe length.
func (m *Map[K, V]) adaptive() bool {
	return m.kind == scalarKey && !m.state.UsesSafeHashing()
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.table.size
}

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool {
	return m.table.size == 0
}

// Capacity returns the number of buckets, zero or a power of two. The map
// grows once it holds about 10/11 of that.
func (m *Map[K, V]) Capacity() int {
	return m.table.capacity()
}

// UsesSafeHashing reports whether the map hashes with keyed SipHash. Once
// true, it stays true for the life of the map.
func (m *Map[K, V]) UsesSafeHashing() bool {
	m.lazyInit()
	return m.state.UsesSafeHashing()
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	if m.table.size == 0 {
		return
	}
	if idx := m.table.find(m.makeHash(&key), &key); idx >= 0 {
		return m.table.pairs[idx].value, true
	}
	return
}

// GetPtr returns a pointer to the value stored under key, or nil. The
// pointer is valid until the next insertion of a new key, removal, resize
// or clear.
func (m *Map[K, V]) GetPtr(key K) *V {
	if m.table.size == 0 {
		return nil
	}
	if idx := m.table.find(m.makeHash(&key), &key); idx >= 0 {
		return &m.table.pairs[idx].value
	}
	return nil
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	if m.table.size == 0 {
		return false
	}
	return m.table.find(m.makeHash(&key), &key) >= 0
}

// Insert stores value under key. If the key was present, its value is
// replaced and returned with replaced set; the stored key is kept.
func (m *Map[K, V]) Insert(key K, value V) (previous V, replaced bool) {
	m.lazyInit()
	m.reserve(1)
	_, previous, replaced = m.insertHashed(m.makeHash(&key), key, value)
	m.checkInvariants()
	return
}

// insertHashed stores an entry in a table that has room for one more.
// Maps in fast mode probe at most DisplacementThreshold buckets; a longer
// probe runs the adaptation policy and the insertion starts over, with a
// fresh hash since the mode may have changed.
func (m *Map[K, V]) insertHashed(hash SafeHash, key K, value V) (idx int, previous V, replaced bool) {
	for {
		if !m.adaptive() {
			idx, previous, replaced, _ = m.table.insertOrReplace(hash, key, value, 0)
			break
		}
		var ok bool
		idx, previous, replaced, ok = m.table.insertOrReplace(
			hash, key, value, m.policy.DisplacementThreshold)
		if ok {
			break
		}
		m.adapt()
		hash = m.makeHash(&key)
	}
	if !replaced {
		m.mods++
	}
	return
}

// Remove deletes key and returns the value it held.
func (m *Map[K, V]) Remove(key K) (value V, ok bool) {
	if m.table.size == 0 {
		return
	}
	idx := m.table.find(m.makeHash(&key), &key)
	if idx < 0 {
		return
	}
	_, value = m.table.remove(idx)
	m.mods++
	m.checkInvariants()
	return value, true
}

// Clear removes every entry and keeps the buckets.
func (m *Map[K, V]) Clear() {
	m.table.clear()
	m.mods++
}

// Resize sets the number of buckets to the smallest supported count that
// holds max(n, Len()) entries. It can shrink as well as grow the table.
func (m *Map[K, V]) Resize(n int) {
	m.lazyInit()
	tableLen := calcTableLen(max(n, m.table.size))
	if tableLen == m.table.capacity() {
		return
	}
	m.logger.Debug("rhmap: resize",
		zap.Int("from", m.table.capacity()),
		zap.Int("to", tableLen),
		zap.Int("size", m.table.size))
	m.resizeTo(tableLen)
}

// Reserve makes room for at least additional more entries.
func (m *Map[K, V]) Reserve(additional int) {
	m.lazyInit()
	if additional > 0 {
		m.reserve(additional)
	}
}

// ShrinkToFit releases buckets the current entries do not need. An empty
// map drops its bucket array entirely.
func (m *Map[K, V]) ShrinkToFit() {
	m.Resize(0)
}

func (m *Map[K, V]) reserve(additional int) {
	need := m.table.size + additional
	if need < m.table.size {
		contractViolation("capacity overflow reserving %d more entries", additional)
	}
	if need <= usableCapacity(m.table.capacity()) {
		return
	}
	tableLen := calcTableLen(need)
	m.logger.Debug("rhmap: growing table",
		zap.Int("from", m.table.capacity()),
		zap.Int("to", tableLen),
		zap.Int("size", m.table.size))
	m.resizeTo(tableLen)
}

// resizeTo moves every entry into a new array of tableLen buckets. The old
// array stays intact until the new one is complete.
func (m *Map[K, V]) resizeTo(tableLen int) {
	if tableLen > m.table.capacity() {
		m.growths++
	}
	m.table = m.table.resized(tableLen)
	m.mods++
	m.checkInvariants()
}

// Range calls yield for each entry until it returns false. The order is
// unspecified. Values may be updated in place through GetPtr during the
// walk, but inserting new keys or removing keys panics.
func (m *Map[K, V]) Range(yield func(key K, value V) bool) {
	mods := m.mods
	hashes, pairs := m.table.hashes, m.table.pairs
	for i := range hashes {
		if hashes[i].isEmpty() {
			continue
		}
		if !yield(pairs[i].key, pairs[i].value) {
			return
		}
		if m.mods != mods {
			contractViolation("map modified during iteration")
		}
	}
}

// All returns an iterator over all entries, for use with range-over-func.
func (m *Map[K, V]) All() func(yield func(K, V) bool) {
	return m.Range
}

// Keys returns an iterator over all keys.
func (m *Map[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		m.Range(func(key K, _ V) bool {
			return yield(key)
		})
	}
}

// Values returns an iterator over all values.
func (m *Map[K, V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		m.Range(func(_ K, value V) bool {
			return yield(value)
		})
	}
}

// Retain keeps only the entries for which keep returns true. keep may
// update the value through the pointer it is given.
func (m *Map[K, V]) Retain(keep func(key K, value *V) bool) {
	if m.table.size == 0 {
		return
	}
	t := &m.table
	// Starting right after an empty bucket means no backward shift can
	// carry an entry into a bucket that was already visited.
	start := t.firstEmpty()
	removed := false
	for n := 1; n < t.capacity(); {
		idx := (start + n) & t.mask
		if t.hashes[idx].isEmpty() {
			n++
			continue
		}
		mods := m.mods
		p := &t.pairs[idx]
		ok := keep(p.key, &p.value)
		if m.mods != mods {
			contractViolation("map modified during Retain")
		}
		if ok {
			n++
			continue
		}
		t.remove(idx)
		m.mods++
		removed = true
	}
	if removed {
		m.checkInvariants()
	}
}

// Clone returns a copy of the map with the same configuration and hashing
// mode.
func (m *Map[K, V]) Clone() *Map[K, V] {
	m.lazyInit()
	return &Map[K, V]{
		table:    m.table.clone(),
		state:    m.state,
		writeKey: m.writeKey,
		kind:     m.kind,
		policy:   m.policy,
		logger:   m.logger,
	}
}

// ToMap collects all entries into a builtin map.
func (m *Map[K, V]) ToMap() map[K]V {
	a := make(map[K]V, m.Len())
	m.Range(func(key K, value V) bool {
		a[key] = value
		return true
	})
	return a
}

// ToMapWithLimit collects up to limit entries, limit < 0 is no limit.
func (m *Map[K, V]) ToMapWithLimit(limit int) map[K]V {
	if limit == 0 {
		return map[K]V{}
	}
	if limit < 0 {
		limit = math.MaxInt
	}
	a := make(map[K]V, min(m.Len(), limit))
	m.Range(func(key K, value V) bool {
		a[key] = value
		limit--
		return limit > 0
	})
	return a
}

// FromMap inserts every entry of source.
func (m *Map[K, V]) FromMap(source map[K]V) {
	m.Reserve(len(source))
	for k, v := range source {
		m.Insert(k, v)
	}
}

// String implement the formatting output interface fmt.Stringer
func (m *Map[K, V]) String() string {
	const limit = 1024
	return strings.Replace(fmt.Sprint(m.ToMapWithLimit(limit)), "map[", "Map[", 1)
}

var (
	jsonMarshal   func(v any) ([]byte, error)
	jsonUnmarshal func(data []byte, v any) error
)

// SetDefaultJSONMarshal sets the default JSON serialization and deserialization functions.
// If not set, the standard library is used by default.
func SetDefaultJSONMarshal(marshal func(v any) ([]byte, error), unmarshal func(data []byte, v any) error) {
	jsonMarshal, jsonUnmarshal = marshal, unmarshal
}

// MarshalJSON JSON serialization
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	if jsonMarshal != nil {
		return jsonMarshal(m.ToMap())
	}
	return json.Marshal(m.ToMap())
}

// UnmarshalJSON JSON deserialization. Decoded entries are added to the
// map; existing entries are kept unless overwritten.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	var a map[K]V
	unmarshal := json.Unmarshal
	if jsonUnmarshal != nil {
		unmarshal = jsonUnmarshal
	}
	if err := unmarshal(data, &a); err != nil {
		return errors.Wrap(err, "rhmap: decoding map")
	}
	m.FromMap(a)
	return nil
}

// checkInvariants validates the whole table in builds tagged
// rhmap_opt_debug.
func (m *Map[K, V]) checkInvariants() {
	if !debugChecks {
		return
	}
	if err := m.validate(); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "rhmap: invariant check failed"))
	}
}

// validate checks the table invariants and that every entry sits under the
// hash the current mode computes for its key.
func (m *Map[K, V]) validate() error {
	if err := m.table.validate(); err != nil {
		return err
	}
	for i, h := range m.table.hashes {
		if h.isEmpty() {
			continue
		}
		if want := m.makeHash(&m.table.pairs[i].key); want != h {
			return errors.Newf("bucket %d stores hash %#x, key hashes to %#x",
				i, h.Uint64(), want.Uint64())
		}
	}
	return nil
}
