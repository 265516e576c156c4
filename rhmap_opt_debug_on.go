//go:build rhmap_opt_debug

package rhmap

// debugChecks enables a full invariant walk of the bucket array after every
// structural mutation. It is O(capacity) per operation and meant for tests.
const debugChecks = true
