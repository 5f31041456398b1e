package values

import (
	"math"
	"sort"
)

// ResolutionStats summarizes a set of resolution times in hours. A partition
// with no samples produces the zero value: every statistic nil, never a
// fabricated zero.
type ResolutionStats struct {
	SampleCount int      `json:"sample_count"`
	Mean        *float64 `json:"mean,omitempty"`
	Median      *float64 `json:"median,omitempty"`
	P90         *float64 `json:"p90,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// NewResolutionStats computes the summary over samples. The input slice is
// not modified.
func NewResolutionStats(samples []float64) ResolutionStats {
	n := len(samples)
	if n == 0 {
		return ResolutionStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	mean := sum / float64(n)
	median := quantile(sorted, 0.5)
	p90 := quantile(sorted, 0.9)
	min := sorted[0]
	max := sorted[n-1]

	return ResolutionStats{
		SampleCount: n,
		Mean:        &mean,
		Median:      &median,
		P90:         &p90,
		Min:         &min,
		Max:         &max,
	}
}

// IsEmpty reports whether the summary was computed over zero samples.
func (s ResolutionStats) IsEmpty() bool {
	return s.SampleCount == 0
}

// quantile returns the q-quantile of an ascending-sorted slice using linear
// interpolation between the two nearest order statistics: for rank
// h = q*(n-1), the result is sorted[floor(h)] plus the fractional part of h
// times the gap to the next sample.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
