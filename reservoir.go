package conveyor

import (
	"math"
	"slices"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// ReservoirCapacity bounds each task's response-time reservoir. Once full,
// the reservoir stops growing (keep-first policy); no allocation happens on
// the hot path.
const ReservoirCapacity = 256

// Reservoir is a fixed-capacity ordered sequence of samples with a single
// writer and lock-free snapshot reads. The sample at index i is published
// before the size is advanced past i, so a reader never observes an
// unwritten slot.
type Reservoir[T constraints.Integer] struct {
	samples [ReservoirCapacity]T
	size    atomic.Int32
}

// Append records a sample. Returns false once the reservoir is full.
func (r *Reservoir[T]) Append(v T) bool {
	n := r.size.Load()
	if n >= ReservoirCapacity {
		return false
	}
	r.samples[n] = v
	r.size.Store(n + 1)
	return true
}

// Len returns the number of recorded samples.
func (r *Reservoir[T]) Len() int {
	return int(r.size.Load())
}

// Snapshot copies the recorded samples into a fresh slice.
func (r *Reservoir[T]) Snapshot() []T {
	n := r.size.Load()
	out := make([]T, n)
	copy(out, r.samples[:n])
	return out
}

// Percentile returns the q-quantile (q in [0,1]) of a sample snapshot:
// sorted ascending, the element at index ⌈q·(n−1)⌉. Zero when empty, so a
// single outlier among n samples still lands at the high quantiles.
func Percentile[T constraints.Integer](samples []T, q float64) T {
	n := len(samples)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	idx := int(math.Ceil(q * float64(n-1)))
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
