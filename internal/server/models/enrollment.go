// Package models defines the voice enrollment records and the values
// exchanged between the store, the matcher and the service layer.
package models

import "time"

// Enrollment binds a user id to a voiceprint and a spoken secret.
type Enrollment struct {
	UserID          string    `json:"user_id"`
	Voiceprint      []float64 `json:"voice_embedding"`
	Secret          []int     `json:"secret_numbers"`
	EmbeddingMethod string    `json:"embedding_method"`
	FileHash        string    `json:"file_hash"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	IsActive        bool      `json:"is_active"`
}

// Summary returns the record without its voiceprint and secret.
func (e *Enrollment) Summary() EnrollmentSummary {
	return EnrollmentSummary{
		UserID:              e.UserID,
		EmbeddingMethod:     e.EmbeddingMethod,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
		IsActive:            e.IsActive,
		EmbeddingDimensions: len(e.Voiceprint),
		HasSecretNumbers:    len(e.Secret) > 0,
	}
}

// EnrollmentSummary is the redacted view of an Enrollment.
type EnrollmentSummary struct {
	UserID              string    `json:"user_id"`
	EmbeddingMethod     string    `json:"embedding_method"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	IsActive            bool      `json:"is_active"`
	EmbeddingDimensions int       `json:"embedding_dimensions"`
	HasSecretNumbers    bool      `json:"has_secret_numbers"`
}

type StoreStats struct {
	Total        int     `json:"total_users"`
	Active       int     `json:"active_users"`
	Inactive     int     `json:"inactive_users"`
	StorageBytes int64   `json:"storage_bytes"`
	StorageMB    float64 `json:"storage_mb"`
	Location     string  `json:"location"`
}

// Decision is the outcome of matching one probe against the enrolled
// population. UserID is empty when nobody passed both gates.
type Decision struct {
	UserID     string
	Similarity float64
	Threshold  float64

	// SecretMatches counts active records whose secret equalled the probe.
	SecretMatches int
	// BestRejected is the highest similarity among secret matches that fell
	// below the threshold.
	BestRejected float64
}

func (d Decision) Matched() bool { return d.UserID != "" }
