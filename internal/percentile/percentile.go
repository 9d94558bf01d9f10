package percentile

import (
	"math"
	"slices"
)

// Targets is the fixed set of percentiles computed for every row, in the order
// the fan charts read them (outermost band first).
var Targets = []float64{100, 0, 90, 10, 80, 20, 70, 30, 60, 40}

// Labels lists the percentile labels in ascending order.
var Labels = []int{0, 10, 20, 30, 40, 60, 70, 80, 90, 100}

// Missing marks a sample that has no value at the requested time step.
var Missing = math.NaN()

// IsMissing reports whether v is the missing marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Compute returns one nearest-rank percentile per target, in target order.
// Missing samples are dropped before ranking. The index for target p is
// floor((n-1)/100*p) over the ascending samples; no interpolation is done.
// An empty sample set yields nil.
func Compute(samples []float64, targets []float64) []float64 {
	// Work on a copy to avoid mutating the caller's order
	sorted := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !IsMissing(s) {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	slices.Sort(sorted)

	n := len(sorted)
	values := make([]float64, len(targets))
	for i, p := range targets {
		values[i] = sorted[rank(n, p)]
	}
	return values
}

func rank(n int, p float64) int {
	idx := int(math.Floor(float64(n-1) / 100 * p))
	if idx < 0 {
		return 0
	}
	if idx > n-1 {
		return n - 1
	}
	return idx
}
