package voiceprint

import "slices"

const hpssKernel = 17

// hpss splits an STFT into harmonic and percussive time signals using
// median filtering across time (harmonic) and frequency (percussive) and
// soft Wiener-style masks.
func hpss(s *spectrogram, length int) (harmonic, percussive []float64) {
	h := medianAcrossTime(s.mag, hpssKernel)
	p := medianAcrossFreq(s.mag, hpssKernel)

	hc := make([][]complex128, len(s.coeffs))
	pc := make([][]complex128, len(s.coeffs))
	for t, row := range s.coeffs {
		hr := make([]complex128, len(row))
		pr := make([]complex128, len(row))
		for k, c := range row {
			hh, pp := h[t][k]*h[t][k], p[t][k]*p[t][k]
			mh := 0.5
			if total := hh + pp; total > 0 {
				mh = hh / total
			}
			hr[k] = c * complex(mh, 0)
			pr[k] = c * complex(1-mh, 0)
		}
		hc[t], pc[t] = hr, pr
	}

	return istft(hc, length), istft(pc, length)
}

func medianAcrossTime(m [][]float64, kernel int) [][]float64 {
	half := kernel / 2
	out := make([][]float64, len(m))
	buf := make([]float64, 0, kernel)
	for t := range m {
		row := make([]float64, len(m[t]))
		lo, hi := max(0, t-half), min(len(m)-1, t+half)
		for k := range row {
			buf = buf[:0]
			for u := lo; u <= hi; u++ {
				buf = append(buf, m[u][k])
			}
			row[k] = median(buf)
		}
		out[t] = row
	}
	return out
}

func medianAcrossFreq(m [][]float64, kernel int) [][]float64 {
	half := kernel / 2
	out := make([][]float64, len(m))
	buf := make([]float64, 0, kernel)
	for t, src := range m {
		row := make([]float64, len(src))
		for k := range row {
			buf = append(buf[:0], src[max(0, k-half):min(len(src), k+half+1)]...)
			row[k] = median(buf)
		}
		out[t] = row
	}
	return out
}

// median sorts buf in place.
func median(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	slices.Sort(buf)
	n := len(buf)
	if n%2 == 1 {
		return buf[n/2]
	}
	return (buf[n/2-1] + buf[n/2]) / 2
}
