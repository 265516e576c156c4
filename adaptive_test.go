package rhmap

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// collidingKeys returns n distinct keys that the fast hash sends to the
// same ideal bucket in every table of up to 2^20 buckets.
func collidingKeys(n int) []uint32 {
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = uint32(i)<<20 + 5
	}
	return keys
}

func TestAdaptive_CollidingKeysSwitchToSafeHashing(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := New[uint32, int](WithLogger(zap.New(core)))
	keys := collidingKeys(135)

	// Up to DisplacementThreshold keys the run is long but tolerated.
	for i, k := range keys[:DefaultDisplacementThreshold] {
		m.Insert(k, i)
	}
	require.False(t, m.UsesSafeHashing())
	require.NoError(t, m.validate())
	require.Equal(t, DefaultDisplacementThreshold-1, m.Stats().MaxDisplacement)

	for i, k := range keys[DefaultDisplacementThreshold:] {
		m.Insert(k, DefaultDisplacementThreshold+i)
	}
	require.True(t, m.UsesSafeHashing())
	require.Equal(t, len(keys), m.Len())
	for i, k := range keys {
		v, ok := m.Get(k)
		if !ok || v != i {
			t.Fatalf("key %#x: got %d, %v", k, v, ok)
		}
	}
	require.NoError(t, m.validate())

	stats := m.Stats()
	require.Equal(t, uint32(1), stats.TotalRehashes)
	require.Less(t, stats.MaxDisplacement, DefaultDisplacementThreshold)

	switched := logs.FilterMessage("rhmap: long probe sequence at low load, switching to safe hashing")
	require.Equal(t, 1, switched.Len())
	require.Equal(t, zapcore.WarnLevel, switched.All()[0].Level)
	require.NotEmpty(t, logs.FilterMessage("rhmap: growing table").All())
}

func TestAdaptive_HighLoadGrows(t *testing.T) {
	p := Policy{DisplacementThreshold: 8, LoadFactorThreshold: DefaultLoadFactorThreshold}
	core, logs := observer.New(zapcore.InfoLevel)
	m := New[uint64, int](WithPolicy(p), WithLogger(zap.New(core)))
	m.Reserve(1)
	c := uint64(m.Capacity())

	// Eight keys colliding on bucket 0 fill buckets 0..7.
	for i := range uint64(8) {
		m.Insert(i*c, 0)
	}
	// Fillers in their own ideal buckets bring the load to the threshold.
	for i := uint64(0); float64(m.Len()) < p.LoadFactorThreshold*float64(c); i++ {
		m.Insert(8+i, 0)
	}
	require.Equal(t, int(c), m.Capacity())
	growths := m.Stats().TotalGrowths

	// The ninth collider reaches the threshold at high load.
	m.Insert(8*c, 0)
	require.False(t, m.UsesSafeHashing())
	require.Equal(t, int(2*c), m.Capacity())
	require.Equal(t, growths+1, m.Stats().TotalGrowths)
	require.Zero(t, m.Stats().TotalRehashes)
	require.True(t, m.ContainsKey(8*c))
	require.NoError(t, m.validate())

	grew := logs.FilterMessage("rhmap: long probe sequence at high load, growing table")
	require.Equal(t, 1, grew.Len())
	require.Equal(t, zapcore.InfoLevel, grew.All()[0].Level)
}

func TestAdaptive_LowLoadSwitchesWithSmallThreshold(t *testing.T) {
	m := New[uint64, string](WithPolicy(Policy{DisplacementThreshold: 8, LoadFactorThreshold: 0.9}))
	m.Reserve(1)
	c := uint64(m.Capacity())
	for i := range uint64(8) {
		m.Insert(i*c, "x")
	}
	require.False(t, m.UsesSafeHashing())
	m.Insert(8*c, "y")
	require.True(t, m.UsesSafeHashing())
	require.Equal(t, int(c), m.Capacity(), "the switch rehashes in place of growing")
	require.Equal(t, 9, m.Len())
	require.NoError(t, m.validate())
}

func TestAdaptive_SafeModeIsPermanent(t *testing.T) {
	m := New[uint32, int]()
	for i, k := range collidingKeys(200) {
		m.Insert(k, i)
	}
	require.True(t, m.UsesSafeHashing())

	for _, k := range collidingKeys(200) {
		m.Remove(k)
	}
	require.True(t, m.UsesSafeHashing())
	m.ShrinkToFit()
	m.Clear()
	m.Resize(10_000)
	require.True(t, m.UsesSafeHashing())
	require.True(t, m.Clone().UsesSafeHashing())

	m.SwitchToSafeHashing()
	require.Equal(t, uint32(1), m.Stats().TotalRehashes)
}

func TestAdaptive_NonScalarKeysAlwaysSafe(t *testing.T) {
	require.True(t, New[string, int]().UsesSafeHashing())
	require.True(t, New[point, int]().UsesSafeHashing())
	require.True(t, New[float64, int]().UsesSafeHashing())

	var zero Map[string, int]
	require.True(t, zero.UsesSafeHashing())

	require.False(t, New[int, int]().UsesSafeHashing())
	require.False(t, New[*point, int]().UsesSafeHashing())
	require.True(t, New[int, int](WithSafeHashing()).UsesSafeHashing())
}

func TestAdaptive_SafeModeSkipsProbeBound(t *testing.T) {
	// In safe mode the displacement threshold no longer applies.
	m := New[uint64, int](
		WithSafeHashing(),
		WithPolicy(Policy{DisplacementThreshold: 1, LoadFactorThreshold: 0.5}))
	for i := range uint64(5000) {
		m.Insert(i, int(i))
	}
	require.Equal(t, 5000, m.Len())
	require.Zero(t, m.Stats().TotalRehashes)
	require.NoError(t, m.validate())
}

func TestAdaptive_ExplicitSwitch(t *testing.T) {
	m := New[int, int]()
	for i := range 500 {
		m.Insert(i, i)
	}
	capacity := m.Capacity()
	m.SwitchToSafeHashing()
	require.True(t, m.UsesSafeHashing())
	require.Equal(t, capacity, m.Capacity())
	for i := range 500 {
		v, ok := m.Get(i)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.NoError(t, m.validate())
}

func TestAdaptive_SeededPlacementIsReproducible(t *testing.T) {
	build := func() *Map[uint32, int] {
		m := New[uint32, int](WithSeed(11, 13))
		for i, k := range collidingKeys(300) {
			m.Insert(k, i)
		}
		return m
	}
	a, b := build(), build()
	require.True(t, a.UsesSafeHashing())
	require.Equal(t, a.table.hashes, b.table.hashes)
}
