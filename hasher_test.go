package rhmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeHash_NeverEmpty(t *testing.T) {
	for _, raw := range []uint64{0, 1, 1 << 63, ^uint64(0), 0x1234} {
		h := newSafeHash(raw)
		if h.isEmpty() {
			t.Fatalf("newSafeHash(%#x) produced the empty marker", raw)
		}
		if h.Uint64()&safeHashBit == 0 {
			t.Fatalf("newSafeHash(%#x) = %#x lacks the top bit", raw, h.Uint64())
		}
		if got, want := h.idealIndex(1023), int(raw&1023); got != want {
			t.Fatalf("idealIndex changed the low bits: got %d, want %d", got, want)
		}
	}
}

func TestHashState_FastAccumulatesByXOR(t *testing.T) {
	s := NewFastHashState()
	h := s.Hasher()
	require.False(t, h.Safe())
	h.WriteUint64(0b0110)
	h.WriteUint32(0b0011)
	require.Equal(t, uint64(0b0101), h.Sum64())

	h.Reset()
	require.Zero(t, h.Sum64())

	// Narrow signed keys are sign-extended.
	writeInteger(&h, int8(-1))
	require.Equal(t, ^uint64(0), h.Sum64())
}

func TestHashState_FastByteWritePanics(t *testing.T) {
	s := NewFastHashState()
	h := s.Hasher()
	requireContractViolation(t, func() {
		_, _ = h.Write([]byte("abc"))
	})
	requireContractViolation(t, func() {
		_, _ = h.WriteString("abc")
	})
}

func TestHashState_SwitchIsIdempotent(t *testing.T) {
	s := NewFastHashState()
	require.False(t, s.UsesSafeHashing())
	s.SwitchToSafeHashing()
	require.True(t, s.UsesSafeHashing())
	k0, k1 := s.k0, s.k1

	s.SwitchToSafeHashing()
	require.True(t, s.UsesSafeHashing())
	require.Equal(t, k0, s.k0)
	require.Equal(t, k1, s.k1)
}

func TestHashState_SafeIsKeyed(t *testing.T) {
	a := newSeededHashState(1, 2)
	b := newSeededHashState(1, 2)
	c := newSeededHashState(3, 4)
	for _, s := range []*HashState{&a, &b, &c} {
		s.SwitchToSafeHashing()
	}
	sum := func(s *HashState) uint64 {
		h := s.Hasher()
		require.True(t, h.Safe())
		h.WriteUint64(42)
		_, _ = h.WriteString("answer")
		return h.Sum64()
	}
	require.Equal(t, sum(&a), sum(&b))
	require.NotEqual(t, sum(&a), sum(&c))

	// Seeded keys survive the switch.
	require.Equal(t, uint64(1), a.k0)
	require.Equal(t, uint64(2), a.k1)
}

func TestHashState_SafeWritesAreChained(t *testing.T) {
	s := newSeededHashState(7, 9)
	s.SwitchToSafeHashing()

	h1 := s.Hasher()
	h1.WriteUint8(1)
	h1.WriteUint8(2)

	h2 := s.Hasher()
	h2.WriteUint8(2)
	h2.WriteUint8(1)
	if h1.Sum64() == h2.Sum64() {
		t.Fatalf("write order does not affect the hash: %#x", h1.Sum64())
	}

	h1.Reset()
	h2.Reset()
	require.Equal(t, h1.Sum64(), h2.Sum64())
	require.Len(t, h1.Sum(nil), h1.Size())
}

func TestHashState_NewSafeDrawsKeys(t *testing.T) {
	s := NewSafeHashState()
	require.True(t, s.UsesSafeHashing())
	// Two 64-bit draws being both zero is not a realistic outcome.
	require.False(t, s.k0 == 0 && s.k1 == 0)
}
