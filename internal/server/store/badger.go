package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/vmihailenco/msgpack/v5"
)

var _ Store = (*BadgerStore)(nil)

const (
	keyPrefix = "enrollment:"

	// conflictRetries bounds retries of a transaction that lost a race.
	conflictRetries = 16
)

// badgerRecord is the msgpack envelope of a stored enrollment. The arrays use
// the same JSON text encoding as the SQL columns.
type badgerRecord struct {
	UserID          string    `msgpack:"user_id"`
	VoiceEmbedding  string    `msgpack:"voice_embedding"`
	SecretNumbers   string    `msgpack:"secret_numbers"`
	EmbeddingMethod string    `msgpack:"embedding_method"`
	FileHash        string    `msgpack:"file_hash"`
	CreatedAt       time.Time `msgpack:"created_at"`
	UpdatedAt       time.Time `msgpack:"updated_at"`
	IsActive        bool      `msgpack:"is_active"`
}

func encodeRecord(e *models.Enrollment) ([]byte, error) {
	return msgpack.Marshal(&badgerRecord{
		UserID:          e.UserID,
		VoiceEmbedding:  models.EncodeVoiceprint(e.Voiceprint),
		SecretNumbers:   models.EncodeSecret(e.Secret),
		EmbeddingMethod: e.EmbeddingMethod,
		FileHash:        e.FileHash,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
		IsActive:        e.IsActive,
	})
}

func decodeRecord(data []byte) (*models.Enrollment, error) {
	var r badgerRecord
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	vp, err := models.DecodeVoiceprint(r.VoiceEmbedding)
	if err != nil {
		return nil, err
	}
	secret, err := models.DecodeSecret(r.SecretNumbers)
	if err != nil {
		return nil, err
	}
	return &models.Enrollment{
		UserID:          r.UserID,
		Voiceprint:      vp,
		Secret:          secret,
		EmbeddingMethod: r.EmbeddingMethod,
		FileHash:        r.FileHash,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		IsActive:        r.IsActive,
	}, nil
}

func recordKey(userID string) []byte {
	return []byte(keyPrefix + userID)
}

// BadgerStore keeps enrollments in an embedded Badger database.
type BadgerStore struct {
	db   *badger.DB
	opts options
}

type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir      string
	InMemory bool
	Logger   logging.Logger
}

func OpenBadger(bopts BadgerOptions, opts ...Option) (*BadgerStore, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("badger store: data directory is required")
	}

	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := bopts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger.With("module", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, storageErr("open badger", err)
	}

	o := newOptions(opts)
	if o.location == "" {
		o.location = bopts.Dir
		if bopts.InMemory {
			o.location = "memory"
		}
	}
	return &BadgerStore{db: db, opts: o}, nil
}

// update runs fn in a read-write transaction, retrying when a concurrent
// transaction committed first.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range conflictRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getRecord(txn *badger.Txn, userID string) (*models.Enrollment, error) {
	item, err := txn.Get(recordKey(userID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, notFound(userID)
		}
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

func putRecord(txn *badger.Txn, e *models.Enrollment) error {
	data, err := encodeRecord(e)
	if err != nil {
		return err
	}
	return txn.Set(recordKey(e.UserID), data)
}

func (s *BadgerStore) Upsert(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	rec, err := prepare(e, s.opts.timestamp())
	if err != nil {
		return nil, err
	}
	created := rec.CreatedAt

	err = s.update(func(txn *badger.Txn) error {
		rec.CreatedAt = created
		existing, err := getRecord(txn, rec.UserID)
		switch {
		case err == nil:
			rec.CreatedAt = existing.CreatedAt
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}
		return putRecord(txn, rec)
	})
	if err != nil {
		return nil, storageErr("upsert", err)
	}
	return rec, nil
}

func (s *BadgerStore) Get(ctx context.Context, userID string, activeOnly bool) (*models.Enrollment, error) {
	var e *models.Enrollment
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getRecord(txn, userID)
		return err
	})
	if err != nil {
		return nil, storageErr("get", err)
	}
	if activeOnly && !e.IsActive {
		return nil, notFound(userID)
	}
	return e, nil
}

func (s *BadgerStore) list(activeOnly bool) ([]*models.Enrollment, error) {
	var result []*models.Enrollment
	prefix := []byte(keyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeRecord(data)
			if err != nil {
				return err
			}
			if activeOnly && !e.IsActive {
				continue
			}
			result = append(result, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

func (s *BadgerStore) ListAll(ctx context.Context) ([]*models.Enrollment, error) {
	list, err := s.list(false)
	return list, storageErr("list", err)
}

func (s *BadgerStore) ListActive(ctx context.Context) ([]*models.Enrollment, error) {
	list, err := s.list(true)
	return list, storageErr("list active", err)
}

func (s *BadgerStore) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(userID, false)
}

func (s *BadgerStore) Reactivate(ctx context.Context, userID string) error {
	return s.setActive(userID, true)
}

func (s *BadgerStore) setActive(userID string, active bool) error {
	at := s.opts.timestamp()
	err := s.update(func(txn *badger.Txn) error {
		e, err := getRecord(txn, userID)
		if err != nil {
			return err
		}
		if e.IsActive == active {
			return alreadyInState(userID, active)
		}
		e.IsActive = active
		e.UpdatedAt = at
		return putRecord(txn, e)
	})
	return storageErr("set active", err)
}

func (s *BadgerStore) PermanentlyDelete(ctx context.Context, userID string) error {
	err := s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(userID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return notFound(userID)
			}
			return err
		}
		return txn.Delete(recordKey(userID))
	})
	return storageErr("delete", err)
}

func (s *BadgerStore) Stats(ctx context.Context) (models.StoreStats, error) {
	var total, active int
	var estimated int64
	prefix := []byte(keyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			estimated += item.EstimatedSize()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeRecord(data)
			if err != nil {
				return err
			}
			total++
			if e.IsActive {
				active++
			}
		}
		return nil
	})
	if err != nil {
		return models.StoreStats{}, storageErr("stats", err)
	}

	lsm, vlog := s.db.Size()
	size := lsm + vlog
	if size == 0 {
		size = estimated
	}
	return makeStats(total, active, size, s.opts.location), nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger forwards Badger's printf style logging to a logging.Logger.
type badgerLogger struct {
	l logging.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{}) {
	b.l.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Warningf(f string, v ...interface{}) {
	b.l.Warn(context.Background(), strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Infof(f string, v ...interface{}) {
	b.l.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Debugf(f string, v ...interface{}) {
	b.l.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(f, v...)))
}
