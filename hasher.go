package rhmap

import (
	"encoding/binary"
	"hash"
	"math/rand/v2"
	"unsafe"

	"github.com/dchest/siphash"
	"golang.org/x/exp/constraints"
)

// HashState supplies hashers to a map. It starts either in fast mode, where
// hashers XOR fixed-width key words into an accumulator, or in safe mode,
// where hashers run SipHash-2-4 under a secret 128-bit key.
//
// The switch from fast to safe happens at most once and is never undone.
type HashState struct {
	k0, k1 uint64
	safe   bool
	fixed  bool // keys were supplied by the caller and must not be redrawn
}

// NewFastHashState returns a state in fast mode.
func NewFastHashState() HashState {
	return HashState{}
}

// NewSafeHashState returns a state in safe mode with freshly drawn keys.
func NewSafeHashState() HashState {
	s := HashState{}
	s.SwitchToSafeHashing()
	return s
}

// newSeededHashState returns a fast state whose safe mode, once entered,
// uses the given keys instead of random ones.
func newSeededHashState(k0, k1 uint64) HashState {
	return HashState{k0: k0, k1: k1, fixed: true}
}

// SwitchToSafeHashing moves the state to safe mode. Calling it again is a
// no-op: the keys drawn on the first call stay in force.
func (s *HashState) SwitchToSafeHashing() {
	if s.safe {
		return
	}
	if !s.fixed {
		s.k0, s.k1 = rand.Uint64(), rand.Uint64()
	}
	s.safe = true
}

// UsesSafeHashing reports whether the state is in safe mode.
func (s *HashState) UsesSafeHashing() bool {
	return s.safe
}

// Hasher returns a fresh hasher for the current mode.
func (s *HashState) Hasher() AdaptiveHasher {
	if s.safe {
		return AdaptiveHasher{safe: true, sip: safeHasher{k0: s.k0, k1: s.k1}}
	}
	return AdaptiveHasher{}
}

// fastHasher accumulates fixed-width words by XOR. It is only sound for
// scalar keys, where every bit of the key is significant, and it is only
// ever reached through the scalar key writers.
type fastHasher struct {
	acc uint64
}

func (h *fastHasher) writeUint64(v uint64) {
	h.acc ^= v
}

// safeHasher is a keyed SipHash-2-4. Successive writes are chained by
// keying each block with the running sum.
type safeHasher struct {
	k0, k1  uint64
	sum     uint64
	written bool
}

func (h *safeHasher) write(p []byte) {
	if !h.written {
		h.sum = siphash.Hash(h.k0, h.k1, p)
		h.written = true
		return
	}
	h.sum = siphash.Hash(h.k0^h.sum, h.k1, p)
}

func (h *safeHasher) sum64() uint64 {
	if !h.written {
		return siphash.Hash(h.k0, h.k1, nil)
	}
	return h.sum
}

// AdaptiveHasher hashes one key under the mode of the HashState that built
// it. It implements hash.Hash64.
//
// In fast mode only the fixed-width Write methods are legal: a call to
// Write or WriteString panics, since byte streams are never hashed by the
// XOR accumulator.
type AdaptiveHasher struct {
	safe bool
	fast fastHasher
	sip  safeHasher
}

var _ hash.Hash64 = (*AdaptiveHasher)(nil)

// Safe reports whether the hasher runs in safe mode.
func (h *AdaptiveHasher) Safe() bool {
	return h.safe
}

// Write hashes p. It panics in fast mode.
func (h *AdaptiveHasher) Write(p []byte) (int, error) {
	if !h.safe {
		contractViolation("byte-stream write of %d bytes on a fast-mode hasher", len(p))
	}
	h.sip.write(p)
	return len(p), nil
}

// WriteString hashes the bytes of s without copying them. It panics in
// fast mode.
func (h *AdaptiveHasher) WriteString(s string) (int, error) {
	return h.Write(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// WriteUint8 hashes one byte.
func (h *AdaptiveHasher) WriteUint8(v uint8) {
	if h.safe {
		h.sip.write([]byte{v})
		return
	}
	h.fast.writeUint64(uint64(v))
}

// WriteUint16 hashes a 16-bit word.
func (h *AdaptiveHasher) WriteUint16(v uint16) {
	if h.safe {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], v)
		h.sip.write(b[:])
		return
	}
	h.fast.writeUint64(uint64(v))
}

// WriteUint32 hashes a 32-bit word.
func (h *AdaptiveHasher) WriteUint32(v uint32) {
	if h.safe {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		h.sip.write(b[:])
		return
	}
	h.fast.writeUint64(uint64(v))
}

// WriteUint64 hashes a 64-bit word.
func (h *AdaptiveHasher) WriteUint64(v uint64) {
	if h.safe {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		h.sip.write(b[:])
		return
	}
	h.fast.writeUint64(v)
}

// Sum64 returns the hash of everything written so far.
func (h *AdaptiveHasher) Sum64() uint64 {
	if h.safe {
		return h.sip.sum64()
	}
	return h.fast.acc
}

// Sum appends the big-endian hash to b.
func (h *AdaptiveHasher) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint64(b, h.Sum64())
}

// Reset discards everything written, keeping the mode and keys.
func (h *AdaptiveHasher) Reset() {
	h.fast = fastHasher{}
	h.sip.sum, h.sip.written = 0, false
}

// Size returns the number of bytes Sum appends.
func (h *AdaptiveHasher) Size() int { return 8 }

// BlockSize returns the SipHash block size.
func (h *AdaptiveHasher) BlockSize() int { return 8 }

// writeInteger feeds v to h as one 64-bit word. Signed values are
// sign-extended, so every integer width hashes like its 64-bit value.
func writeInteger[T constraints.Integer](h *AdaptiveHasher, v T) {
	h.WriteUint64(uint64(v))
}
