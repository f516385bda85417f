package voiceprint

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// computeFeatures evaluates the fixed feature recipe on a mono signal. The
// order of the groups is part of the voiceprint format: changing it
// invalidates every stored enrollment.
func computeFeatures(y []float64, sr int) []float64 {
	duration := float64(len(y)) / float64(sr)

	spec := stft(y, sr)
	melDB := powerToDB(melSpectrogram(spec.power, melFilterBank(mfccMels, sr)))
	bands := melSpectrogram(spec.power, melFilterBank(bandMels, sr))

	out := make([]float64, 0, 112)

	// 26: MFCC means and stds
	mfccMeans, mfccStds := columnStats(mfcc(melDB), numMFCC)
	out = append(out, mfccMeans...)
	out = append(out, mfccStds...)

	// 12: chroma means
	chromaMeans, _ := columnStats(chroma(spec.power, spec.freqs), 12)
	out = append(out, chromaMeans...)

	// 7: spectral shape and zero crossings
	shape := spectralShape(spec.mag, spec.freqs)
	out = append(out,
		mean(shape.centroid), std(shape.centroid),
		mean(shape.rolloff), std(shape.rolloff),
		mean(shape.bandwidth), std(shape.bandwidth),
		mean(zeroCrossingRate(y)),
	)

	// 7: rhythm
	rh := analyzeRhythm(melDB, sr)
	out = append(out,
		rh.tempo/200,
		perSecond(len(rh.beats), duration),
		perSecond(len(rh.onsets), duration),
		std(diff(framesToSeconds(rh.beats, sr))),
		mean(rh.envelope),
		std(rh.envelope),
		mean(diff(framesToSeconds(rh.onsets, sr))),
	)

	// 13: energy and amplitude distribution
	frameRMS := rms(y)
	pow := squares(y)
	absDiff := abs(diff(y))
	out = append(out,
		mean(frameRMS), std(frameRMS),
		mean(pow), std(pow),
		maxOf(abs(y)), mean(abs(y)),
		percentile(y, 0.95), percentile(y, 0.75), percentile(y, 0.25), percentile(y, 0.05),
		duration,
		mean(absDiff), std(absDiff),
	)

	// 13: coarse mel band energies
	bandMeans, _ := columnStats(bands, bandMels)
	out = append(out, bandMeans...)

	// 7: harmonic / percussive split
	yh, yp := hpss(spec, len(y))
	out = append(out,
		mean(squares(yh)), mean(squares(yp)),
		std(yh), std(yp),
		correlation(yh, yp),
		mean(abs(yh)), mean(abs(yp)),
	)

	// 5: pitch over voiced frames
	f0 := yinPitch(y, sr)
	v := voiced(f0)
	out = append(out,
		mean(v), std(v), minOf(v), maxOf(v),
		percentile(v, 0.75)-percentile(v, 0.25),
	)

	// 4: magnitude statistics
	allMag := flatten(spec.mag)
	frameSums := rowSums(spec.mag)
	out = append(out, mean(allMag), std(allMag), mean(frameSums), std(frameSums))

	// 6: voice quality proxies
	out = append(out,
		relativeVariation(v),
		relativeVariation(rowSums(spec.power)),
		harmonicToNoise(y, yh),
		spectralSlope(spec),
		voiceActivity(frameRMS),
		variance(shape.centroid),
	)

	return out
}

func perSecond(n int, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(n) / duration
}

// relativeVariation is std(diff(x)) / mean(x); used for jitter on pitch
// and shimmer on frame energy.
func relativeVariation(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	mu := mean(x)
	if mu == 0 {
		return 0
	}
	return std(diff(x)) / mu
}

func harmonicToNoise(y, yh []float64) float64 {
	noise := make([]float64, len(y))
	for i := range y {
		noise[i] = y[i] - yh[i]
	}
	return math.Log10(mean(squares(yh))/(mean(squares(noise))+1e-10) + 1e-10)
}

// spectralSlope fits a line to the time-averaged magnitude over the lower
// half of the spectrum and returns its slope.
func spectralSlope(s *spectrogram) float64 {
	half := len(s.freqs) / 2
	avg, _ := columnStats(s.mag, len(s.freqs))
	if half < 2 {
		return 0
	}
	_, slope := stat.LinearRegression(s.freqs[:half], avg[:half], nil, false)
	return slope
}

// voiceActivity is the fraction of frames louder than the 30th percentile
// of frame RMS.
func voiceActivity(frameRMS []float64) float64 {
	if len(frameRMS) == 0 {
		return 0
	}
	floor := percentile(frameRMS, 0.30)
	var n int
	for _, v := range frameRMS {
		if v > floor {
			n++
		}
	}
	return float64(n) / float64(len(frameRMS))
}
