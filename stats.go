package rhmap

import (
	"fmt"
	"strings"
)

// MapStats is Map statistics.
//
// Warning: map statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type MapStats struct {
	// Capacity is the number of buckets in the table.
	Capacity int
	// Size is the exact number of entries stored in the map.
	Size int
	// EmptyBuckets is the number of buckets that hold no entry.
	EmptyBuckets int
	// MaxDisplacement is the largest distance between an entry and its
	// ideal bucket.
	MaxDisplacement int
	// TotalDisplacement is the sum of all entry displacements, i.e. the
	// extra buckets visited by looking every key up once.
	TotalDisplacement int
	// MeanDisplacement is TotalDisplacement / Size.
	MeanDisplacement float64
	// TotalGrowths is the number of times the table grew.
	TotalGrowths uint32
	// TotalRehashes is the number of times the map rehashed its entries
	// under a new hash function, at most once.
	TotalRehashes uint32
	// SafeHashing is true once the map hashes with keyed SipHash.
	SafeHashing bool
	// AdaptiveKeys is true if the key type starts in fast mode and is
	// watched for long probe sequences.
	AdaptiveKeys bool
}

// Stats returns statistics for the Map. Just like other map
// methods, this one is not safe to call concurrently with mutations.
// It walks the whole bucket array.
func (m *Map[K, V]) Stats() *MapStats {
	m.lazyInit()
	stats := &MapStats{
		Capacity:      m.table.capacity(),
		TotalGrowths:  m.growths,
		TotalRehashes: m.rehashes,
		SafeHashing:   m.state.UsesSafeHashing(),
		AdaptiveKeys:  m.kind == scalarKey,
	}
	for i, h := range m.table.hashes {
		if h.isEmpty() {
			stats.EmptyBuckets++
			continue
		}
		stats.Size++
		d := m.table.displacementAt(i)
		stats.TotalDisplacement += d
		stats.MaxDisplacement = max(stats.MaxDisplacement, d)
	}
	if stats.Size > 0 {
		stats.MeanDisplacement = float64(stats.TotalDisplacement) / float64(stats.Size)
	}
	return stats
}

// ToString returns string representation of map stats.
func (s *MapStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("MapStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:          %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("Size:              %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("EmptyBuckets:      %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("MaxDisplacement:   %d\n", s.MaxDisplacement))
	sb.WriteString(fmt.Sprintf("TotalDisplacement: %d\n", s.TotalDisplacement))
	sb.WriteString(fmt.Sprintf("MeanDisplacement:  %.3f\n", s.MeanDisplacement))
	sb.WriteString(fmt.Sprintf("TotalGrowths:      %d\n", s.TotalGrowths))
	sb.WriteString(fmt.Sprintf("TotalRehashes:     %d\n", s.TotalRehashes))
	sb.WriteString(fmt.Sprintf("SafeHashing:       %t\n", s.SafeHashing))
	sb.WriteString(fmt.Sprintf("AdaptiveKeys:      %t\n", s.AdaptiveKeys))
	sb.WriteString("}\n")
	return sb.String()
}
