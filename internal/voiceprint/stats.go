package voiceprint

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// The helpers below return 0 for empty input so that short or silent
// signals never panic inside gonum.

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// std is the population standard deviation.
func std(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return math.Sqrt(v)
}

func variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(x, nil)
	return v
}

func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := slices.Clone(x)
	slices.Sort(s)
	return stat.Quantile(p, stat.LinInterp, s, nil)
}

func maxOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Max(x)
}

func minOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Min(x)
}

func correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

func diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}
	return out
}

func abs(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	return out
}

func squares(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * v
	}
	return out
}

// columnStats returns the mean and std over frames of every column of a
// frame-major matrix.
func columnStats(m [][]float64, cols int) (means, stds []float64) {
	means = make([]float64, cols)
	stds = make([]float64, cols)
	col := make([]float64, len(m))
	for c := 0; c < cols; c++ {
		for t, row := range m {
			col[t] = row[c]
		}
		means[c] = mean(col)
		stds[c] = std(col)
	}
	return means, stds
}

func flatten(m [][]float64) []float64 {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	out := make([]float64, 0, n)
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

func rowSums(m [][]float64) []float64 {
	out := make([]float64, len(m))
	for t, row := range m {
		out[t] = floats.Sum(row)
	}
	return out
}
