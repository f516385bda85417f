package enrollments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/dbx"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
)

// queries holds the dialect specific statements. Placeholders differ between
// dialects but the argument order is the same for both.
type queries struct {
	upsert      string
	get         string
	listAll     string
	listActive  string
	setActive   string
	delete      string
	counts      string
	storageSize string
}

type sqlRepository struct {
	db dbx.DBTX
	q  queries

	// bindTime converts a timestamp to the value stored by the dialect.
	bindTime func(time.Time) any
	// setActiveArgs orders the arguments of the setActive statement.
	setActiveArgs func(userID string, active bool, at any) []any
}

const selectColumns = `user_id, voice_embedding, secret_numbers, embedding_method, file_hash, created_at, updated_at, is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var (
		e                models.Enrollment
		voice, secret    string
		created, updated dbTime
	)
	if err := row.Scan(&e.UserID, &voice, &secret, &e.EmbeddingMethod, &e.FileHash, &created, &updated, &e.IsActive); err != nil {
		return nil, err
	}

	var err error
	if e.Voiceprint, err = models.DecodeVoiceprint(voice); err != nil {
		return nil, err
	}
	if e.Secret, err = models.DecodeSecret(secret); err != nil {
		return nil, err
	}
	e.CreatedAt = created.Time
	e.UpdatedAt = updated.Time

	return &e, nil
}

func (r *sqlRepository) Upsert(ctx context.Context, e *models.Enrollment) error {
	var created dbTime
	err := r.db.QueryRowContext(ctx, r.q.upsert,
		e.UserID,
		models.EncodeVoiceprint(e.Voiceprint),
		models.EncodeSecret(e.Secret),
		e.EmbeddingMethod,
		e.FileHash,
		r.bindTime(e.CreatedAt),
		r.bindTime(e.UpdatedAt),
	).Scan(&created)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	e.CreatedAt = created.Time
	e.IsActive = true
	return nil
}

func (r *sqlRepository) Get(ctx context.Context, userID string) (*models.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRowContext(ctx, r.q.get, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *sqlRepository) List(ctx context.Context, activeOnly bool) ([]*models.Enrollment, error) {
	query := r.q.listAll
	if activeOnly {
		query = r.q.listActive
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *sqlRepository) SetActive(ctx context.Context, userID string, active bool, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q.setActive, r.setActiveArgs(userID, active, r.bindTime(at))...)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *sqlRepository) Delete(ctx context.Context, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.q.delete, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *sqlRepository) Counts(ctx context.Context) (int, int, error) {
	var total, active int
	if err := r.db.QueryRowContext(ctx, r.q.counts).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return total, active, nil
}

func (r *sqlRepository) StorageSize(ctx context.Context) (int64, error) {
	var size int64
	if err := r.db.QueryRowContext(ctx, r.q.storageSize).Scan(&size); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return size, nil
}
