package rhmap

import (
	"reflect"
	"unsafe"

	"github.com/dolthub/maphash"
)

// keyKind classifies a key type once, when a map is built.
type keyKind uint8

const (
	// scalarKey covers fixed-width integers and pointers. These keys are
	// cheap to enumerate, so maps over them start in fast mode and adapt.
	scalarKey keyKind = iota
	// stringKey keys are always hashed in safe mode.
	stringKey
	// compositeKey covers every other comparable type. The key is first
	// condensed by a seeded runtime hash, then hashed in safe mode.
	compositeKey
)

func (k keyKind) String() string {
	switch k {
	case scalarKey:
		return "scalar"
	case stringKey:
		return "string"
	default:
		return "composite"
	}
}

// keyWriter feeds one key into a hasher.
type keyWriter[K comparable] func(h *AdaptiveHasher, key *K)

// defaultKeyWriter picks the writer for K by its underlying kind, so named
// types such as `type UserID uint32` are classified like their base type.
func defaultKeyWriter[K comparable]() (write keyWriter[K], kind keyKind) {
	switch reflect.TypeFor[K]().Kind() {
	case reflect.Int8:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*int8)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Uint8:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*uint8)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Int16:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*int16)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Uint16:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*uint16)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Int32:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*int32)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Uint32:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*uint32)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Int64:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*int64)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Uint64:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*uint64)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Int:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*int)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Uint:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*uint)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.Uintptr, reflect.Pointer, reflect.UnsafePointer:
		return func(h *AdaptiveHasher, key *K) {
			writeInteger(h, *(*uintptr)(unsafe.Pointer(key)))
		}, scalarKey
	case reflect.String:
		return func(h *AdaptiveHasher, key *K) {
			_, _ = h.WriteString(*(*string)(unsafe.Pointer(key)))
		}, stringKey
	default:
		seeded := maphash.NewHasher[K]()
		return func(h *AdaptiveHasher, key *K) {
			h.WriteUint64(seeded.Hash(*key))
		}, compositeKey
	}
}
