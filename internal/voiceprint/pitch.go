package voiceprint

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	yinFrame     = 2048
	yinWindow    = 1024
	yinFMin      = 50.0
	yinFMax      = 400.0
	yinThreshold = 0.1
	yinFFT       = 4096
)

// yinPitch estimates the fundamental frequency of every centred frame with
// the YIN algorithm. Frames without a clear periodicity are reported as 0
// (unvoiced).
func yinPitch(y []float64, sr int) []float64 {
	minLag := int(math.Floor(float64(sr) / yinFMax))
	maxLag := int(math.Ceil(float64(sr) / yinFMin))
	if maxLag > yinFrame-yinWindow {
		maxLag = yinFrame - yinWindow
	}

	fft := fourier.NewFFT(yinFFT)
	frameBuf := make([]float64, yinFFT)
	winBuf := make([]float64, yinFFT)
	corr := make([]float64, yinFFT)
	prod := make([]complex128, yinFFT/2+1)
	cum := make([]float64, yinFrame+1)
	d := make([]float64, maxLag+1)

	fr := frames(y, yinFrame, hopLength)
	f0 := make([]float64, len(fr))

	for t, f := range fr {
		clear(frameBuf)
		clear(winBuf)
		copy(frameBuf, f)
		copy(winBuf, f[:yinWindow])

		a := fft.Coefficients(nil, frameBuf)
		b := fft.Coefficients(nil, winBuf)
		for k := range prod {
			prod[k] = a[k] * complex(real(b[k]), -imag(b[k]))
		}
		fft.Sequence(corr, prod)

		for i, v := range f {
			cum[i+1] = cum[i] + v*v
		}
		energy := func(tau int) float64 { return cum[tau+yinWindow] - cum[tau] }

		e0 := energy(0)
		if e0 <= 1e-10 {
			continue
		}
		for tau := 1; tau <= maxLag; tau++ {
			r := corr[tau] / yinFFT
			d[tau] = math.Max(0, e0+energy(tau)-2*r)
		}

		f0[t] = pickPeriod(d, minLag, maxLag, sr)
	}
	return f0
}

// pickPeriod applies the cumulative-mean normalisation to the difference
// function d and returns the frequency of the first dip below yinThreshold,
// refined by parabolic interpolation, or 0.
func pickPeriod(d []float64, minLag, maxLag, sr int) float64 {
	cmnd := make([]float64, maxLag+1)
	cmnd[0] = 1
	var running float64
	for tau := 1; tau <= maxLag; tau++ {
		running += d[tau]
		if running <= 0 {
			cmnd[tau] = 1
			continue
		}
		cmnd[tau] = d[tau] * float64(tau) / running
	}

	for tau := minLag; tau <= maxLag; tau++ {
		if cmnd[tau] >= yinThreshold {
			continue
		}
		for tau+1 <= maxLag && cmnd[tau+1] < cmnd[tau] {
			tau++
		}
		period := float64(tau)
		if tau > 1 && tau < maxLag {
			l, c, r := cmnd[tau-1], cmnd[tau], cmnd[tau+1]
			if den := l - 2*c + r; den != 0 {
				period += 0.5 * (l - r) / den
			}
		}
		if period <= 0 {
			return 0
		}
		return float64(sr) / period
	}
	return 0
}

func voiced(f0 []float64) []float64 {
	var out []float64
	for _, v := range f0 {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}
