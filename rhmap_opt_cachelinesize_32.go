//go:build rhmap_opt_cachelinesize_32

package rhmap

// CacheLineSize is fixed at build time by the rhmap_opt_cachelinesize_32 tag.
const CacheLineSize = 32
