package voiceprint

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

const (
	nFFT      = 2048
	hopLength = 512
	numBins   = nFFT/2 + 1

	mfccMels  = 40
	numMFCC   = 13
	bandMels  = 13
	topDB     = 80.0
	powerEps  = 1e-10
	rolloffAt = 0.85
)

// spectrogram holds a centred STFT in frame-major layout.
type spectrogram struct {
	coeffs [][]complex128
	mag    [][]float64
	power  [][]float64
	freqs  []float64
}

// hannWindow generates a periodic Hann window of the given length.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// padCenter zero-pads half a frame on both sides of y.
func padCenter(y []float64, frame int) []float64 {
	padded := make([]float64, len(y)+frame)
	copy(padded[frame/2:], y)
	return padded
}

// frames splits a centred signal into overlapping frames. The returned rows
// alias the padded buffer.
func frames(y []float64, frame, hop int) [][]float64 {
	padded := padCenter(y, frame)
	n := 1 + (len(padded)-frame)/hop
	out := make([][]float64, n)
	for t := range out {
		out[t] = padded[t*hop : t*hop+frame]
	}
	return out
}

func stft(y []float64, sr int) *spectrogram {
	fft := fourier.NewFFT(nFFT)
	window := hannWindow(nFFT)
	buf := make([]float64, nFFT)

	fr := frames(y, nFFT, hopLength)
	s := &spectrogram{
		coeffs: make([][]complex128, len(fr)),
		mag:    make([][]float64, len(fr)),
		power:  make([][]float64, len(fr)),
		freqs:  make([]float64, numBins),
	}
	for k := range s.freqs {
		s.freqs[k] = float64(k) * float64(sr) / nFFT
	}

	for t, f := range fr {
		for i := range buf {
			buf[i] = f[i] * window[i]
		}
		c := fft.Coefficients(nil, buf)
		mag := make([]float64, len(c))
		pow := make([]float64, len(c))
		for k, v := range c {
			m := math.Hypot(real(v), imag(v))
			mag[k] = m
			pow[k] = m * m
		}
		s.coeffs[t], s.mag[t], s.power[t] = c, mag, pow
	}
	return s
}

// istft inverts a centred STFT by windowed overlap-add and returns length
// samples.
func istft(coeffs [][]complex128, length int) []float64 {
	fft := fourier.NewFFT(nFFT)
	window := hannWindow(nFFT)

	total := nFFT + hopLength*(len(coeffs)-1)
	out := make([]float64, total)
	norm := make([]float64, total)
	seq := make([]float64, nFFT)

	for t, c := range coeffs {
		fft.Sequence(seq, c)
		off := t * hopLength
		for i, v := range seq {
			out[off+i] += v / nFFT * window[i]
			norm[off+i] += window[i] * window[i]
		}
	}
	for i := range out {
		if norm[i] > 1e-8 {
			out[i] /= norm[i]
		}
	}

	start := nFFT / 2
	end := start + length
	if end > len(out) {
		end = len(out)
	}
	return out[start:end]
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds numMels triangular filters spanning 0..sr/2 with
// continuous (not bin-rounded) edges. Returns [numMels][numBins].
func melFilterBank(numMels, sr int) [][]float64 {
	lowMel, highMel := hzToMel(0), hzToMel(float64(sr)/2)
	edges := make([]float64, numMels+2)
	step := (highMel - lowMel) / float64(numMels+1)
	for i := range edges {
		edges[i] = melToHz(lowMel + float64(i)*step)
	}

	bank := make([][]float64, numMels)
	for m := range bank {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		filter := make([]float64, numBins)
		for k := range filter {
			f := float64(k) * float64(sr) / nFFT
			up := (f - left) / (center - left)
			down := (right - f) / (right - center)
			filter[k] = math.Max(0, math.Min(up, down))
		}
		bank[m] = filter
	}
	return bank
}

// melSpectrogram applies bank to every power frame.
func melSpectrogram(power [][]float64, bank [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for t, p := range power {
		row := make([]float64, len(bank))
		for m, filter := range bank {
			row[m] = floats.Dot(filter, p)
		}
		out[t] = row
	}
	return out
}

// powerToDB converts power to decibels, flooring at topDB below the peak.
func powerToDB(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	peak := math.Inf(-1)
	for t, row := range m {
		db := make([]float64, len(row))
		for i, v := range row {
			db[i] = 10 * math.Log10(math.Max(v, powerEps))
			peak = math.Max(peak, db[i])
		}
		out[t] = db
	}
	floor := peak - topDB
	for _, row := range out {
		for i := range row {
			row[i] = math.Max(row[i], floor)
		}
	}
	return out
}

// dctBasis returns an orthonormal DCT-II basis of n coefficients over size inputs.
func dctBasis(n, size int) [][]float64 {
	basis := make([][]float64, n)
	for k := range basis {
		scale := math.Sqrt(2.0 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(size))
		}
		row := make([]float64, size)
		for i := range row {
			row[i] = scale * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(size)))
		}
		basis[k] = row
	}
	return basis
}

func mfcc(melDB [][]float64) [][]float64 {
	basis := dctBasis(numMFCC, mfccMels)
	out := make([][]float64, len(melDB))
	for t, row := range melDB {
		c := make([]float64, numMFCC)
		for k, b := range basis {
			c[k] = floats.Dot(b, row)
		}
		out[t] = c
	}
	return out
}

// chroma folds power into 12 pitch classes per frame, each frame scaled so
// its loudest class is 1.
func chroma(power [][]float64, freqs []float64) [][]float64 {
	class := make([]int, len(freqs))
	for k, f := range freqs {
		class[k] = -1
		if f < 32.7 {
			continue
		}
		midi := 12*math.Log2(f/440.0) + 69
		pc := int(math.Round(midi)) % 12
		if pc < 0 {
			pc += 12
		}
		class[k] = pc
	}

	out := make([][]float64, len(power))
	for t, p := range power {
		row := make([]float64, 12)
		for k, v := range p {
			if class[k] >= 0 {
				row[class[k]] += v
			}
		}
		if peak := floats.Max(row); peak > 0 {
			floats.Scale(1/peak, row)
		}
		out[t] = row
	}
	return out
}

type shapeStats struct {
	centroid, bandwidth, rolloff []float64
}

func spectralShape(mag [][]float64, freqs []float64) shapeStats {
	s := shapeStats{
		centroid:  make([]float64, len(mag)),
		bandwidth: make([]float64, len(mag)),
		rolloff:   make([]float64, len(mag)),
	}
	for t, m := range mag {
		total := floats.Sum(m)
		if total <= 0 {
			continue
		}
		c := floats.Dot(m, freqs) / total
		s.centroid[t] = c

		var spread float64
		for k, v := range m {
			d := freqs[k] - c
			spread += v * d * d
		}
		s.bandwidth[t] = math.Sqrt(spread / total)

		var cum float64
		for k, v := range m {
			cum += v
			if cum >= rolloffAt*total {
				s.rolloff[t] = freqs[k]
				break
			}
		}
	}
	return s
}

func zeroCrossingRate(y []float64) []float64 {
	fr := frames(y, nFFT, hopLength)
	out := make([]float64, len(fr))
	for t, f := range fr {
		var n int
		for i := 1; i < len(f); i++ {
			if (f[i] >= 0) != (f[i-1] >= 0) {
				n++
			}
		}
		out[t] = float64(n) / float64(len(f))
	}
	return out
}

func rms(y []float64) []float64 {
	fr := frames(y, nFFT, hopLength)
	out := make([]float64, len(fr))
	for t, f := range fr {
		out[t] = math.Sqrt(floats.Dot(f, f) / float64(len(f)))
	}
	return out
}
