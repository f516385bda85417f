package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/dbx"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/dmitrijs2005/voicepay/internal/server/repositories/repomanager"
)

var _ Store = (*SQLStore)(nil)

// SQLStore keeps enrollments in PostgreSQL or SQLite. Every operation runs in
// its own transaction.
type SQLStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	opts        options
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager, opts ...Option) *SQLStore {
	o := newOptions(opts)
	if o.location == "" {
		o.location = rm.Driver()
	}
	return &SQLStore{db: db, repomanager: rm, opts: o}
}

// OpenSQL connects to dsn, migrates the schema and returns a ready store.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	rm, err := repomanager.New(driver)
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorStorage, err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrations: %w", common.ErrorStorage, err)
	}

	return NewSQLStore(db, rm, opts...), nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, s.db, nil, fn)
}

func (s *SQLStore) Upsert(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	rec, err := prepare(e, s.opts.timestamp())
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Enrollments(tx).Upsert(ctx, rec)
	})
	if err != nil {
		return nil, storageErr("upsert", err)
	}

	return rec, nil
}

func (s *SQLStore) Get(ctx context.Context, userID string, activeOnly bool) (*models.Enrollment, error) {
	e, err := s.repomanager.Enrollments(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, notFound(userID)
		}
		return nil, storageErr("get", err)
	}
	if activeOnly && !e.IsActive {
		return nil, notFound(userID)
	}
	return e, nil
}

func (s *SQLStore) ListAll(ctx context.Context) ([]*models.Enrollment, error) {
	list, err := s.repomanager.Enrollments(s.db).List(ctx, false)
	return list, storageErr("list", err)
}

func (s *SQLStore) ListActive(ctx context.Context) ([]*models.Enrollment, error) {
	list, err := s.repomanager.Enrollments(s.db).List(ctx, true)
	return list, storageErr("list active", err)
}

func (s *SQLStore) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, false)
}

func (s *SQLStore) Reactivate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, true)
}

func (s *SQLStore) setActive(ctx context.Context, userID string, active bool) error {
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Enrollments(tx)

		changed, err := repo.SetActive(ctx, userID, active, s.opts.timestamp())
		if err != nil {
			return err
		}
		if changed {
			return nil
		}

		// nothing changed: either the user is unknown or already in state
		if _, err := repo.Get(ctx, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return notFound(userID)
			}
			return err
		}
		return alreadyInState(userID, active)
	})
	return storageErr("set active", err)
}

func (s *SQLStore) PermanentlyDelete(ctx context.Context, userID string) error {
	err := s.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		deleted, err := s.repomanager.Enrollments(tx).Delete(ctx, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return notFound(userID)
		}
		return nil
	})
	return storageErr("delete", err)
}

func (s *SQLStore) Stats(ctx context.Context) (models.StoreStats, error) {
	repo := s.repomanager.Enrollments(s.db)

	total, active, err := repo.Counts(ctx)
	if err != nil {
		return models.StoreStats{}, storageErr("stats", err)
	}
	size, err := repo.StorageSize(ctx)
	if err != nil {
		return models.StoreStats{}, storageErr("storage size", err)
	}

	return makeStats(total, active, size, s.opts.location), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
