//go:build rhmap_opt_cachelinesize_64

package rhmap

// CacheLineSize is fixed at build time by the rhmap_opt_cachelinesize_64 tag.
const CacheLineSize = 64
