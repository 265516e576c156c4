//go:build rhmap_opt_cachelinesize_128

package rhmap

// CacheLineSize is fixed at build time by the rhmap_opt_cachelinesize_128 tag.
const CacheLineSize = 128
