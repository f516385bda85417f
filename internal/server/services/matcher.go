// Package services contains the voice authentication business logic: the
// two factor matcher and the VoiceAuthService façade that drives feature
// extraction, secret extraction, the enrollment store and the archive.
package services

import (
	"math"

	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the minimum cosine similarity of an accepted voiceprint.
const DefaultThreshold = 0.85

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the vectors differ in length, either has zero norm, or the result is not
// finite.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	s := floats.Dot(a, b) / (na * nb)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, s))
}

// Matcher applies the two factor rule: the probe secret must equal the
// record secret exactly, and only then is the voiceprint compared.
type Matcher struct {
	Threshold float64
}

func NewMatcher(threshold float64) Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// Match scans records in order. Among candidates at or above the threshold
// the strictly highest similarity wins, so ties keep the earlier record.
// Inactive records are ignored.
func (m Matcher) Match(records []*models.Enrollment, voice []float64, secret []int) models.Decision {
	d := models.Decision{Threshold: m.Threshold}
	best := math.Inf(-1)

	for _, r := range records {
		if r == nil || !r.IsActive {
			continue
		}
		if !models.SecretsEqual(secret, r.Secret) {
			continue
		}
		d.SecretMatches++

		sim := CosineSimilarity(voice, r.Voiceprint)
		if sim < m.Threshold {
			d.BestRejected = math.Max(d.BestRejected, sim)
			continue
		}
		if sim > best {
			best = sim
			d.UserID = r.UserID
			d.Similarity = sim
		}
	}

	return d
}
