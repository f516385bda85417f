package voiceprint

import "math"

const (
	minBPM        = 30.0
	maxBPM        = 300.0
	onsetMinGap   = 3
	onsetDeltaStd = 0.5
)

type rhythmStats struct {
	envelope []float64
	tempo    float64
	beats    []int
	onsets   []int
}

// onsetEnvelope is the mean positive frame-to-frame change of a dB mel
// spectrogram (spectral flux).
func onsetEnvelope(melDB [][]float64) []float64 {
	env := make([]float64, len(melDB))
	for t := 1; t < len(melDB); t++ {
		var sum float64
		for m := range melDB[t] {
			if d := melDB[t][m] - melDB[t-1][m]; d > 0 {
				sum += d
			}
		}
		env[t] = sum / float64(len(melDB[t]))
	}
	return env
}

// pickOnsets returns local maxima of env that rise above mean + 0.5·std and
// are at least onsetMinGap frames apart.
func pickOnsets(env []float64) []int {
	threshold := mean(env) + onsetDeltaStd*std(env)
	var out []int
	last := -onsetMinGap
	for t := 1; t+1 < len(env); t++ {
		if env[t] > threshold && env[t] > env[t-1] && env[t] >= env[t+1] && t-last >= onsetMinGap {
			out = append(out, t)
			last = t
		}
	}
	return out
}

// estimatePeriod finds the autocorrelation peak of env within the allowed
// tempo range. It returns the period in frames, or 0 when env is flat.
func estimatePeriod(env []float64, sr int) int {
	frameRate := float64(sr) / hopLength
	minLag := int(math.Floor(60 * frameRate / maxBPM))
	maxLag := int(math.Ceil(60 * frameRate / minBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		maxLag = len(env) - 1
	}

	mu := mean(env)
	centered := make([]float64, len(env))
	for i, v := range env {
		centered[i] = v - mu
	}

	best, bestLag := 0.0, 0
	for lag := minLag; lag <= maxLag; lag++ {
		var ac float64
		for i := lag; i < len(centered); i++ {
			ac += centered[i] * centered[i-lag]
		}
		if ac > best {
			best, bestLag = ac, lag
		}
	}
	return bestLag
}

// trackBeats walks a grid of the given period, snapping each predicted beat
// to the strongest envelope frame within a quarter period.
func trackBeats(env []float64, period int) []int {
	if period <= 0 || len(env) == 0 {
		return nil
	}

	start := 0
	for t := 1; t < period && t < len(env); t++ {
		if env[t] > env[start] {
			start = t
		}
	}

	beats := []int{start}
	tol := max(1, period/4)
	for {
		pred := beats[len(beats)-1] + period
		if pred >= len(env) {
			break
		}
		lo, hi := max(pred-tol, beats[len(beats)-1]+1), min(pred+tol, len(env)-1)
		best := pred
		for t := lo; t <= hi; t++ {
			if env[t] > env[best] {
				best = t
			}
		}
		beats = append(beats, best)
	}
	return beats
}

func analyzeRhythm(melDB [][]float64, sr int) rhythmStats {
	env := onsetEnvelope(melDB)
	period := estimatePeriod(env, sr)

	r := rhythmStats{envelope: env, onsets: pickOnsets(env)}
	if period > 0 {
		r.tempo = 60 * float64(sr) / hopLength / float64(period)
		r.beats = trackBeats(env, period)
	}
	return r
}

func framesToSeconds(idx []int, sr int) []float64 {
	out := make([]float64, len(idx))
	for i, t := range idx {
		out[i] = float64(t) * hopLength / float64(sr)
	}
	return out
}
