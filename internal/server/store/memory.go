package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/voicepay/internal/server/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps enrollments in a map. Nothing survives Close.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Enrollment
	opts    options
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	if o.location == "" {
		o.location = "memory"
	}
	return &MemoryStore{records: map[string]*models.Enrollment{}, opts: o}
}

func clone(e *models.Enrollment) *models.Enrollment {
	c := *e
	c.Voiceprint = append([]float64(nil), e.Voiceprint...)
	c.Secret = append([]int(nil), e.Secret...)
	return &c
}

func (s *MemoryStore) Upsert(ctx context.Context, e *models.Enrollment) (*models.Enrollment, error) {
	rec, err := prepare(e, s.opts.timestamp())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.UserID]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	s.records[rec.UserID] = clone(rec)
	return rec, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string, activeOnly bool) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[userID]
	if !ok || (activeOnly && !e.IsActive) {
		return nil, notFound(userID)
	}
	return clone(e), nil
}

func (s *MemoryStore) list(activeOnly bool) []*models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Enrollment
	for _, e := range s.records {
		if activeOnly && !e.IsActive {
			continue
		}
		result = append(result, clone(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].UserID < result[j].UserID
	})
	return result
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]*models.Enrollment, error) {
	return s.list(false), nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]*models.Enrollment, error) {
	return s.list(true), nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(userID, false)
}

func (s *MemoryStore) Reactivate(ctx context.Context, userID string) error {
	return s.setActive(userID, true)
}

func (s *MemoryStore) setActive(userID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[userID]
	if !ok {
		return notFound(userID)
	}
	if e.IsActive == active {
		return alreadyInState(userID, active)
	}
	e.IsActive = active
	e.UpdatedAt = s.opts.timestamp()
	return nil
}

func (s *MemoryStore) PermanentlyDelete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[userID]; !ok {
		return notFound(userID)
	}
	delete(s.records, userID)
	return nil
}

func (s *MemoryStore) Stats(ctx context.Context) (models.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active int
	var size int64
	for _, e := range s.records {
		if e.IsActive {
			active++
		}
		size += int64(len(models.EncodeVoiceprint(e.Voiceprint)) + len(models.EncodeSecret(e.Secret)) + len(e.UserID) + len(e.FileHash))
	}
	return makeStats(len(s.records), active, size, s.opts.location), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = map[string]*models.Enrollment{}
	return nil
}
