package analytics

import "sort"

// Percentiles computes the requested percentiles over a sample using linear
// interpolation between closest ranks. A single-element sample returns that
// element for every percentile; an empty sample returns an empty map.
func Percentiles(values []float64, percentiles []int) map[string]float64 {
	result := make(map[string]float64, len(percentiles))
	if len(values) == 0 {
		return result
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	for _, p := range percentiles {
		result[FormatPercentile(p)] = interpolate(sorted, p)
	}
	return result
}

// interpolate expects sorted input. The rank (p/100)*(n-1) falls between two
// sample indices; the value is interpolated proportionally between them.
func interpolate(sorted []float64, p int) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := float64(p) / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
