// Package constants collects the tuning knobs shared across the task pool
// and pipeline packages, in one place so the numbers can be reasoned about
// together.
package constants

import "time"

// Task pool scheduling.
const (
	// DequeueTimeout is how long a worker blocks on an empty queue before
	// re-checking the stop flag and the pool's shutdown predicate.
	DequeueTimeout = 200 * time.Millisecond

	// DefaultMaxWorkers caps a pool's live worker count when the caller
	// does not specify one explicitly.
	DefaultMaxWorkers = 64
)

// Download-stage dynamic scaling (spec'd heuristic: target = base_threads +
// 8^7 / (size + epsilon), triggered only when the next task is small).
const (
	// SmallTaskThreshold is the size, in bytes, at or below which a task is
	// considered "small enough" to trigger the scale-up heuristic.
	SmallTaskThreshold = 1 << 20 // 1 MiB

	// ScaleNumerator is 8^7 (2,097,152): a 32 KiB task asks for
	// base_threads+63 workers and a 64 KiB task for base_threads+31, while
	// a 1 MiB task adds only one.
	ScaleNumerator = 8 * 8 * 8 * 8 * 8 * 8 * 8

	// ScaleEpsilon avoids a division by zero for a zero-byte task.
	ScaleEpsilon = 1.0
)
