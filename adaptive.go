package rhmap

import (
	"go.uber.org/zap"
)

// adapt runs when a fast-mode insertion visited DisplacementThreshold
// buckets without finding its place.
//
// At or above LoadFactorThreshold the long probe is plausibly honest
// clustering, so the table doubles and keeps the fast hash. Below it the
// keys are colliding on purpose or by very bad luck: the map switches to
// safe hashing for good and rehashes every entry into a new table of the
// same size. Either way the caller retries its insertion from scratch.
//
//go:noinline
func (m *Map[K, V]) adapt() {
	capacity := m.table.capacity()
	loadFactor := float64(m.table.size) / float64(capacity)
	fields := []zap.Field{
		zap.Int("size", m.table.size),
		zap.Int("capacity", capacity),
		zap.Float64("load_factor", loadFactor),
		zap.Int("displacement_threshold", m.policy.DisplacementThreshold),
	}
	if loadFactor >= m.policy.LoadFactorThreshold {
		m.logger.Info("rhmap: long probe sequence at high load, growing table", fields...)
		m.resizeTo(capacity * 2)
		return
	}
	m.logger.Warn("rhmap: long probe sequence at low load, switching to safe hashing", fields...)
	m.switchToSafeHashing()
}

// switchToSafeHashing rehashes every entry under a safe-mode copy of the
// hash state into a new table of the same size, then installs both.
func (m *Map[K, V]) switchToSafeHashing() {
	state := m.state
	state.SwitchToSafeHashing()
	nt := newRawTable[K, V](m.table.capacity())
	for i, h := range m.table.hashes {
		if h.isEmpty() {
			continue
		}
		p := &m.table.pairs[i]
		nt.insertUnique(m.makeHashWith(&state, &p.key), p.key, p.value)
	}
	m.state = state
	m.table = nt
	m.rehashes++
	m.mods++
	m.checkInvariants()
}

// SwitchToSafeHashing moves a fast-mode map to safe hashing right away,
// rehashing every entry. It is a no-op if the map already hashes safely.
func (m *Map[K, V]) SwitchToSafeHashing() {
	m.lazyInit()
	if m.state.UsesSafeHashing() {
		return
	}
	m.logger.Debug("rhmap: switching to safe hashing on request",
		zap.Int("size", m.table.size),
		zap.Int("capacity", m.table.capacity()))
	m.switchToSafeHashing()
}
