// Package histogram bins variable values at the anchor time for brushing.
package histogram

import (
	"errors"
	"math"
)

// DefaultBins is the number of bins drawn per variable.
const DefaultBins = 10

// ErrBinCount is returned for fewer than two bins.
var ErrBinCount = errors.New("histogram needs at least two bins")

// Domain is the closed value range a histogram covers.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DomainOf returns the extent of the non-NaN values. A zero-width extent is
// widened by one so it can be binned.
func DomainOf(values ...[]float64) (Domain, bool) {
	d := Domain{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, set := range values {
		for _, v := range set {
			if math.IsNaN(v) {
				continue
			}
			d.Min = min(d.Min, v)
			d.Max = max(d.Max, v)
		}
	}
	if math.IsInf(d.Min, 1) {
		return Domain{}, false
	}
	if d.Max == d.Min {
		d.Max = d.Min + 1
	}
	return d, true
}

// Step returns the bin width for numBins bins. The last bin starts at Max,
// so the domain spans numBins-1 steps.
func (d Domain) Step(numBins int) float64 {
	return (d.Max - d.Min) / float64(numBins-1)
}

// Bin counts values per bin over domain. Values outside the domain and NaN
// markers are not counted.
func Bin(values []float64, domain Domain, numBins int) ([]int, error) {
	if numBins < 2 {
		return nil, ErrBinCount
	}
	counts := make([]int, numBins)
	step := domain.Step(numBins)
	for _, v := range values {
		if math.IsNaN(v) || v < domain.Min || v > domain.Max {
			continue
		}
		idx := int(math.Floor((v - domain.Min) / step))
		counts[min(idx, numBins-1)]++
	}
	return counts, nil
}

// Diff returns a - b bin by bin. Both must share a domain and bin count.
func Diff(a, b []int) []int {
	n := min(len(a), len(b))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] - b[i]
	}
	return out
}

// Edges returns the lower edge of every bin.
func Edges(domain Domain, numBins int) []float64 {
	step := domain.Step(numBins)
	edges := make([]float64, numBins)
	for i := range edges {
		edges[i] = domain.Min + step*float64(i)
	}
	return edges
}

// Total sums the counts.
func Total(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
