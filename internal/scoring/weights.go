// Package scoring implements the KPI achievement and strategy roll-up
// engine: weight normalization, capped achievement, sector-weighted
// adjustment, KPI→SH→SA aggregation, trends and benchmark ranking.
//
// Every function here is pure and deterministic for a fixed input.
package scoring

import "math"

// Normalize converts raw importance scores into a distribution that sums
// to 1. Non-finite and negative entries count as 0. When nothing valid
// remains the uniform distribution is returned. Empty input yields an
// empty (non-nil) slice.
func Normalize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}

	var sum float64
	for _, x := range xs {
		if validWeight(x) {
			sum += x
		}
	}
	if sum <= 0 {
		return UniformWeights(len(xs))
	}

	for i, x := range xs {
		if validWeight(x) {
			out[i] = x / sum
		}
	}
	return out
}

// UniformWeights is the fallback distribution 1/n.
func UniformWeights(n int) []float64 {
	out := make([]float64, n)
	if n <= 0 {
		return out
	}
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// RawWeight maps a stored (possibly absent) weight to a Normalize input.
// An absent weight is invalid and therefore contributes nothing unless
// every sibling is absent too, in which case Normalize falls back to
// uniform.
func RawWeight(w *float64) float64 {
	if w == nil {
		return math.NaN()
	}
	return *w
}

func validWeight(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x >= 0
}
