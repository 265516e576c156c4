package rhmap

import (
	"strconv"
	"testing"
)

var (
	benchDataInt    [128 << 10]uint64
	benchDataString [128 << 10]string
)

func init() {
	for i := range benchDataInt {
		benchDataInt[i] = uint64(i)
		benchDataString[i] = strconv.Itoa(i)
	}
}

func BenchmarkMap_InsertInt(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := New[uint64, int]()
		for j, k := range benchDataInt[:4096] {
			m.Insert(k, j)
		}
	}
}

func BenchmarkMap_InsertIntPresized(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := WithCapacity[uint64, int](4096)
		for j, k := range benchDataInt[:4096] {
			m.Insert(k, j)
		}
	}
}

func BenchmarkMap_GetInt(b *testing.B) {
	benchmarkMapGet(b, benchDataInt[:])
}

func BenchmarkMap_GetIntSafe(b *testing.B) {
	benchmarkMapGet(b, benchDataInt[:], WithSafeHashing())
}

func BenchmarkMap_GetString(b *testing.B) {
	benchmarkMapGet(b, benchDataString[:])
}

func benchmarkMapGet[K comparable](b *testing.B, data []K, options ...func(*MapConfig)) {
	b.ReportAllocs()
	m := New[K, int](options...)
	for i, k := range data {
		m.Insert(k, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Get(data[i%len(data)])
	}
}

func BenchmarkMap_GetIntBuiltin(b *testing.B) {
	b.ReportAllocs()
	m := make(map[uint64]int)
	for i, k := range benchDataInt {
		m[k] = i
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[benchDataInt[i%len(benchDataInt)]]
	}
}

func BenchmarkMap_InsertRemove(b *testing.B) {
	b.ReportAllocs()
	m := New[uint64, int]()
	for i, k := range benchDataInt[:1024] {
		m.Insert(k, i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := benchDataInt[1024+i%(len(benchDataInt)-1024)]
		m.Insert(k, i)
		m.Remove(k)
	}
}

func BenchmarkMap_CollidingKeys(b *testing.B) {
	keys := collidingKeys(1024)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := New[uint32, int]()
		for j, k := range keys {
			m.Insert(k, j)
		}
	}
}

func BenchmarkMap_Entry(b *testing.B) {
	b.ReportAllocs()
	m := New[string, int]()
	for i := 0; i < b.N; i++ {
		*m.Entry(benchDataString[i%1024]).OrInsert(0) += 1
	}
}
