//go:build !rhmap_opt_debug

package rhmap

const debugChecks = false
