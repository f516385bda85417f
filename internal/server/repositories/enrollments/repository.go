// Package enrollments persists voice enrollments in a SQL database. The
// voiceprint and secret are stored as JSON text columns.
package enrollments

import (
	"context"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/server/models"
)

const TableName = "voice_enrollments"

type Repository interface {
	// Upsert inserts e or replaces every field of the existing row except
	// created_at, and marks the row active. e.CreatedAt is set to the stored
	// creation time.
	Upsert(ctx context.Context, e *models.Enrollment) error
	Get(ctx context.Context, userID string) (*models.Enrollment, error)
	// List returns enrollments newest first.
	List(ctx context.Context, activeOnly bool) ([]*models.Enrollment, error)
	// SetActive flips is_active and reports whether a row changed. A row that
	// is already in the requested state is left untouched.
	SetActive(ctx context.Context, userID string, active bool, at time.Time) (bool, error)
	Delete(ctx context.Context, userID string) (bool, error)
	Counts(ctx context.Context) (total, active int, err error)
	StorageSize(ctx context.Context) (int64, error)
}
