// Package store keeps voice enrollments. Every implementation validates
// records before persisting them, keeps one record per user id and supports
// soft deletion through the is_active flag.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
)

// Store is safe for concurrent use. Each mutating call is atomic; concurrent
// upserts of the same user id resolve to the last committed write.
type Store interface {
	// Upsert validates e and stores it as the active record for e.UserID.
	// CreatedAt is kept from an existing record, UpdatedAt is set to now.
	Upsert(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error)
	// Get returns common.ErrorNotFound when the user is unknown or, with
	// activeOnly, deactivated.
	Get(ctx context.Context, userID string, activeOnly bool) (*models.Enrollment, error)
	// ListAll and ListActive return records newest first.
	ListAll(ctx context.Context) ([]*models.Enrollment, error)
	ListActive(ctx context.Context) ([]*models.Enrollment, error)
	Deactivate(ctx context.Context, userID string) error
	Reactivate(ctx context.Context, userID string) error
	PermanentlyDelete(ctx context.Context, userID string) error
	Stats(ctx context.Context) (models.StoreStats, error)
	Close() error
}

type options struct {
	now      func() time.Time
	location string
}

type Option func(*options)

// WithClock replaces time.Now as the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocation sets the human readable location reported by Stats.
func WithLocation(location string) Option {
	return func(o *options) { o.location = location }
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// timestamp is truncated to microseconds, the precision of every backend.
func (o options) timestamp() time.Time {
	return o.now().UTC().Truncate(time.Microsecond)
}

// prepare validates e and returns a copy carrying the write timestamp.
func prepare(e *models.Enrollment, now time.Time) (*models.Enrollment, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil enrollment", common.ErrorValidation)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	c := *e
	c.Voiceprint = make([]float64, len(e.Voiceprint))
	for i, v := range e.Voiceprint {
		c.Voiceprint[i] = models.Round6(v)
	}
	c.Secret = append([]int(nil), e.Secret...)
	c.CreatedAt = now
	c.UpdatedAt = now
	c.IsActive = true
	return &c, nil
}

// storageErr wraps err as a storage failure unless it already carries a
// domain error.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorAlreadyInState) || errors.Is(err, common.ErrorValidation) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", common.ErrorStorage, op, err)
}

func notFound(userID string) error {
	return fmt.Errorf("%w: user %q", common.ErrorNotFound, userID)
}

func alreadyInState(userID string, active bool) error {
	state := "inactive"
	if active {
		state = "active"
	}
	return fmt.Errorf("%w: user %q is already %s", common.ErrorAlreadyInState, userID, state)
}

func makeStats(total, active int, size int64, location string) models.StoreStats {
	return models.StoreStats{
		Total:        total,
		Active:       active,
		Inactive:     total - active,
		StorageBytes: size,
		StorageMB:    math.Round(float64(size)/(1024*1024)*100) / 100,
		Location:     location,
	}
}
