package services

import (
	"math"
	"testing"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func constVector(v float64) []float64 {
	out := make([]float64, common.VoiceprintDimensions)
	for i := range out {
		out[i] = v
	}
	return out
}

func basis(i int) []float64 {
	out := make([]float64, common.VoiceprintDimensions)
	out[i] = 1
	return out
}

func record(id string, voice []float64, secret ...int) *models.Enrollment {
	if len(secret) == 0 {
		secret = []int{1, 2, 3, 4, 5}
	}
	return &models.Enrollment{UserID: id, Voiceprint: voice, Secret: secret, IsActive: true}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", constVector(0.123), constVector(0.123), 1},
		{"opposite", constVector(0.5), constVector(-0.5), -1},
		{"orthogonal", basis(0), basis(1), 0},
		{"zero norm", constVector(0), constVector(0.123), 0},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"nan", []float64{math.NaN(), 1}, []float64{1, 1}, 0},
		{"inf", []float64{math.Inf(1), 1}, []float64{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-12)
		})
	}
}

func TestNewMatcher_DefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewMatcher(0).Threshold)
	assert.Equal(t, DefaultThreshold, NewMatcher(1.5).Threshold)
	assert.Equal(t, 0.9, NewMatcher(0.9).Threshold)
}

func TestMatcher_IdenticalProbe(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	d := m.Match([]*models.Enrollment{record("CARD_1", constVector(0.123))}, constVector(0.123), []int{1, 2, 3, 4, 5})

	assert.True(t, d.Matched())
	assert.Equal(t, "CARD_1", d.UserID)
	assert.InDelta(t, 1.0, d.Similarity, 1e-9)
	assert.Equal(t, 1, d.SecretMatches)
}

func TestMatcher_ZeroNormProbe(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	d := m.Match([]*models.Enrollment{record("CARD_1", constVector(0.123))}, constVector(0), []int{1, 2, 3, 4, 5})

	assert.False(t, d.Matched())
	assert.Equal(t, 0.0, d.Similarity)
	assert.Equal(t, 1, d.SecretMatches)
	assert.Equal(t, 0.0, d.BestRejected)
}

func TestMatcher_SecretGate(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	records := []*models.Enrollment{record("CARD_1", constVector(0.123))}

	for _, secret := range [][]int{
		{9, 9, 9, 9, 9},
		{1, 2, 3, 4, 6},
		{5, 4, 3, 2, 1},
		{1, 2, 3, 4},
		nil,
	} {
		d := m.Match(records, constVector(0.123), secret)
		assert.False(t, d.Matched(), "secret %v", secret)
		assert.Zero(t, d.SecretMatches, "secret %v", secret)
	}
}

func TestMatcher_ThresholdBoundary(t *testing.T) {
	probe := constVector(0.5)
	stored := constVector(0.5)
	stored[0] = -0.5
	sim := CosineSimilarity(probe, stored)
	records := []*models.Enrollment{record("U", stored)}

	d := Matcher{Threshold: sim}.Match(records, probe, []int{1, 2, 3, 4, 5})
	assert.True(t, d.Matched(), "similarity equal to threshold is accepted")
	assert.Equal(t, sim, d.Similarity)

	above := math.Nextafter(sim, 2)
	d = Matcher{Threshold: above}.Match(records, probe, []int{1, 2, 3, 4, 5})
	assert.False(t, d.Matched(), "similarity below threshold is rejected")
	assert.Equal(t, sim, d.BestRejected)
}

func TestMatcher_HighestWinsAndTiesKeepFirst(t *testing.T) {
	near := constVector(0.5)
	near[0] = 0.4

	records := []*models.Enrollment{
		record("near", near),
		record("exact-1", constVector(0.5)),
		record("exact-2", constVector(0.5)),
		record("other-secret", constVector(0.5), 0, 0, 0, 0, 0),
	}

	d := NewMatcher(0.5).Match(records, constVector(0.5), []int{1, 2, 3, 4, 5})
	assert.Equal(t, "exact-1", d.UserID)
	assert.Equal(t, 3, d.SecretMatches)
}

func TestMatcher_SkipsInactive(t *testing.T) {
	r := record("CARD_1", constVector(0.123))
	r.IsActive = false

	d := NewMatcher(DefaultThreshold).Match([]*models.Enrollment{nil, r}, constVector(0.123), []int{1, 2, 3, 4, 5})
	assert.False(t, d.Matched())
	assert.Zero(t, d.SecretMatches)
}

func TestMatcher_EmptyPopulation(t *testing.T) {
	d := NewMatcher(DefaultThreshold).Match(nil, constVector(0.123), []int{1, 2, 3, 4, 5})
	assert.False(t, d.Matched())
	assert.Equal(t, DefaultThreshold, d.Threshold)
}
