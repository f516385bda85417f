package voiceprint

import "math"

// Normalize turns raw feature values into a voiceprint of exactly dims
// values: truncate or zero-pad, replace NaN with 0 and ±Inf with ±1,
// z-score across the vector when its population std is positive, clip to
// [-1, 1] and round to 6 decimals.
func Normalize(raw []float64, dims int) []float64 {
	v := make([]float64, dims)
	copy(v, raw)

	for i, x := range v {
		switch {
		case math.IsNaN(x):
			v[i] = 0
		case math.IsInf(x, 1):
			v[i] = 1
		case math.IsInf(x, -1):
			v[i] = -1
		}
	}

	if s := std(v); s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s) {
		mu := mean(v)
		for i := range v {
			v[i] = (v[i] - mu) / s
		}
	}

	for i, x := range v {
		v[i] = round6(math.Max(-1, math.Min(1, x)))
	}
	return v
}
