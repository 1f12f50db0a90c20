package util

import "runtime"

// GetOptimalPoolSize returns the default worker count for scanning.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// Scanning mixes file I/O with regex and tree-sitter work, so twice the core
// count keeps the CPUs busy while some workers wait on reads. The cap bounds
// the number of live parsers when the syntax check is enabled.
func GetOptimalPoolSize() int {
	poolSize := runtime.NumCPU() * 2
	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}
	return poolSize
}

// GetOptimalPoolSizeWithOverride returns override when it is positive and
// GetOptimalPoolSize otherwise.
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
