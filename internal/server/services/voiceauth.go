package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/dmitrijs2005/voicepay/internal/common"
	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server/analyzer"
	"github.com/dmitrijs2005/voicepay/internal/server/audiostore"
	"github.com/dmitrijs2005/voicepay/internal/server/models"
	"github.com/dmitrijs2005/voicepay/internal/server/store"
	"github.com/dmitrijs2005/voicepay/internal/voiceprint"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const fileHashPrefixLen = 8

type Options struct {
	// Threshold is the minimum cosine similarity; DefaultThreshold when zero.
	Threshold float64
	// Workers bounds concurrent voiceprint extractions; GOMAXPROCS when zero.
	Workers int
}

// Probe is an already extracted voiceprint and secret.
type Probe struct {
	Voiceprint []float64
	Secret     []int
	Method     string
	FileHash   string
}

type RegistrationSummary struct {
	UserID              string `json:"user_id"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	SecretDigits        int    `json:"secret_digits"`
	EmbeddingMethod     string `json:"embedding_method"`
	FileHashPrefix      string `json:"file_hash_prefix"`
	// FallbackReason is set when the voiceprint came from the content hash.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

type AuthenticationResult struct {
	Authenticated   bool    `json:"authenticated"`
	UserID          string  `json:"user_id"`
	SimilarityScore float64 `json:"similarity_score"`
	ThresholdUsed   float64 `json:"threshold_used"`
	SecretMatches   int     `json:"secret_matches"`
	Message         string  `json:"message"`
}

type UserList struct {
	Users []models.EnrollmentSummary `json:"users"`
	Total int                        `json:"total"`
}

type ServiceStats struct {
	models.StoreStats
	Threshold float64 `json:"threshold"`
}

type PaymentAnalysis struct {
	PayerID    string                  `json:"payer_id"`
	Intent     models.PaymentIntent    `json:"intent"`
	Validation models.IntentValidation `json:"validation"`
}

// VoiceAuthService is the single entry point for registering and
// authenticating speakers and for managing their enrollments.
type VoiceAuthService struct {
	store     store.Store
	extractor *voiceprint.Extractor
	secrets   *analyzer.SecretExtractor
	intents   *analyzer.IntentExtractor
	archive   audiostore.Archive
	logger    logging.Logger
	matcher   Matcher
	sem       *semaphore.Weighted
}

func NewVoiceAuthService(
	st store.Store,
	extractor *voiceprint.Extractor,
	secrets *analyzer.SecretExtractor,
	intents *analyzer.IntentExtractor,
	archive audiostore.Archive,
	logger logging.Logger,
	opts Options,
) *VoiceAuthService {
	if archive == nil {
		archive = audiostore.Nop{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &VoiceAuthService{
		store:     st,
		extractor: extractor,
		secrets:   secrets,
		intents:   intents,
		archive:   archive,
		logger:    logger,
		matcher:   NewMatcher(opts.Threshold),
		sem:       semaphore.NewWeighted(int64(workers)),
	}
}

// Threshold returns the similarity threshold in use.
func (s *VoiceAuthService) Threshold() float64 { return s.matcher.Threshold }

type extraction struct {
	voice  voiceprint.Result
	secret []int
}

// extract runs the voiceprint and secret stages concurrently. The
// voiceprint stage waits for a worker slot.
func (s *VoiceAuthService) extract(ctx context.Context, data []byte) (*extraction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio sample", common.ErrorInvalidInput)
	}

	var out extraction
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.sem.Acquire(gctx, 1); err != nil {
			return &StageError{Stage: StageVoiceprint, Err: fmt.Errorf("%w: %w", common.ErrorExtractionFailed, err)}
		}
		defer s.sem.Release(1)
		out.voice = s.extractor.Extract(data)
		return nil
	})

	g.Go(func() error {
		secret, err := s.secrets.Extract(gctx, analyzer.NewAudio(data))
		if err != nil {
			return &StageError{Stage: StageSecret, Err: err}
		}
		out.secret = secret
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.voice.IsFallback() {
		s.logger.Warn(ctx, "voiceprint fallback used",
			"file_hash", shortHash(out.voice.FileHash),
			"reason", out.voice.Error)
	}

	return &out, nil
}

// Register extracts the voiceprint and secret from an audio sample and
// stores them for userID, replacing any earlier enrollment.
func (s *VoiceAuthService) Register(ctx context.Context, userID string, audio []byte) (*RegistrationSummary, error) {
	if err := models.ValidateUserID(userID); err != nil {
		return nil, err
	}

	ex, err := s.extract(ctx, audio)
	if err != nil {
		s.logger.Warn(ctx, "registration extraction failed", "user_id", userID, "error", err)
		return nil, err
	}

	sum, err := s.RegisterProbe(ctx, userID, Probe{
		Voiceprint: ex.voice.Embedding,
		Secret:     ex.secret,
		Method:     ex.voice.Method,
		FileHash:   ex.voice.FileHash,
	})
	if err != nil {
		return nil, err
	}
	sum.FallbackReason = ex.voice.Error

	s.archiveSample(ctx, ex.voice.FileHash, audio)

	return sum, nil
}

// RegisterProbe stores an already extracted voiceprint and secret.
func (s *VoiceAuthService) RegisterProbe(ctx context.Context, userID string, p Probe) (*RegistrationSummary, error) {
	method := p.Method
	if method == "" {
		method = voiceprint.MethodFeatureBased
	}

	saved, err := s.store.Upsert(ctx, &models.Enrollment{
		UserID:          userID,
		Voiceprint:      p.Voiceprint,
		Secret:          p.Secret,
		EmbeddingMethod: method,
		FileHash:        p.FileHash,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", saved.UserID, "method", saved.EmbeddingMethod)

	return &RegistrationSummary{
		UserID:              saved.UserID,
		EmbeddingDimensions: len(saved.Voiceprint),
		SecretDigits:        len(saved.Secret),
		EmbeddingMethod:     saved.EmbeddingMethod,
		FileHashPrefix:      shortHash(saved.FileHash),
	}, nil
}

func (s *VoiceAuthService) archiveSample(ctx context.Context, hash string, audio []byte) {
	if hash == "" {
		return
	}
	if err := s.archive.Put(ctx, audiostore.SampleKey(hash), audio); err != nil {
		s.logger.Warn(ctx, "audio sample not archived", "file_hash", shortHash(hash), "error", err)
	}
}

// Authenticate identifies the speaker of an audio sample. A run that finds
// nobody is not an error: the result carries common.NoMatchUserID.
func (s *VoiceAuthService) Authenticate(ctx context.Context, audio []byte) (*AuthenticationResult, error) {
	ex, err := s.extract(ctx, audio)
	if err != nil {
		s.logger.Warn(ctx, "authentication extraction failed", "error", err)
		return nil, err
	}

	return s.AuthenticateProbe(ctx, Probe{
		Voiceprint: ex.voice.Embedding,
		Secret:     ex.secret,
		Method:     ex.voice.Method,
		FileHash:   ex.voice.FileHash,
	})
}

// AuthenticateProbe matches an already extracted voiceprint and secret
// against the active enrollments.
func (s *VoiceAuthService) AuthenticateProbe(ctx context.Context, p Probe) (*AuthenticationResult, error) {
	records, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	d := s.matcher.Match(records, p.Voiceprint, p.Secret)

	res := &AuthenticationResult{
		Authenticated: d.Matched(),
		UserID:        common.NoMatchUserID,
		ThresholdUsed: d.Threshold,
		SecretMatches: d.SecretMatches,
	}

	switch {
	case d.Matched():
		res.UserID = d.UserID
		res.SimilarityScore = d.Similarity
		res.Message = fmt.Sprintf("authenticated as %s", d.UserID)
	case d.SecretMatches == 0:
		res.Message = "no enrollment matches the spoken secret"
	default:
		res.Message = fmt.Sprintf("voice similarity %.4f below threshold %.2f", d.BestRejected, d.Threshold)
	}

	s.logger.Info(ctx, "authentication finished",
		"authenticated", res.Authenticated,
		"user_id", res.UserID,
		"similarity", res.SimilarityScore,
		"secret_matches", res.SecretMatches)

	return res, nil
}

// GetUserInfo returns the redacted record of userID, active or not.
func (s *VoiceAuthService) GetUserInfo(ctx context.Context, userID string) (*models.EnrollmentSummary, error) {
	e, err := s.store.Get(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	sum := e.Summary()
	return &sum, nil
}

// ListUsers returns every enrollment, newest first.
func (s *VoiceAuthService) ListUsers(ctx context.Context) (*UserList, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := &UserList{Users: make([]models.EnrollmentSummary, 0, len(records)), Total: len(records)}
	for _, e := range records {
		out.Users = append(out.Users, e.Summary())
	}
	return out, nil
}

func (s *VoiceAuthService) Deactivate(ctx context.Context, userID string) error {
	if err := s.store.Deactivate(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deactivated", "user_id", userID)
	return nil
}

func (s *VoiceAuthService) Reactivate(ctx context.Context, userID string) error {
	if err := s.store.Reactivate(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "user reactivated", "user_id", userID)
	return nil
}

// PermanentlyDelete removes the record. Deleting an unknown or already
// deleted user returns common.ErrorNotFound.
func (s *VoiceAuthService) PermanentlyDelete(ctx context.Context, userID string) error {
	if err := s.store.PermanentlyDelete(ctx, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "user permanently deleted", "user_id", userID)
	return nil
}

func (s *VoiceAuthService) Stats(ctx context.Context) (*ServiceStats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &ServiceStats{StoreStats: st, Threshold: s.matcher.Threshold}, nil
}

// SampleLocation returns where the archived enrollment sample of userID can
// be fetched, or "" when archiving is disabled.
func (s *VoiceAuthService) SampleLocation(ctx context.Context, userID string) (string, error) {
	e, err := s.store.Get(ctx, userID, false)
	if err != nil {
		return "", err
	}
	if e.FileHash == "" {
		return "", nil
	}
	return s.archive.Locate(ctx, audiostore.SampleKey(e.FileHash))
}

// AnalyzePayment extracts and validates a payment command spoken by an
// authenticated payer. Nothing is submitted anywhere.
func (s *VoiceAuthService) AnalyzePayment(ctx context.Context, payerID, transcript string) (*PaymentAnalysis, error) {
	if s.intents == nil {
		return nil, fmt.Errorf("%w: payment analysis is not configured", common.ErrorInternal)
	}

	if _, err := s.store.Get(ctx, payerID, true); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: payer %q is not an active user", common.ErrorUnauthorized, payerID)
		}
		return nil, err
	}

	intent, err := s.intents.Extract(ctx, transcript)
	if err != nil {
		return nil, &StageError{Stage: StageIntent, Err: err}
	}
	intent.Payer = payerID

	v := analyzer.ValidateIntent(intent)
	s.logger.Info(ctx, "payment analysed", "payer_id", payerID, "valid", v.IsValid)

	return &PaymentAnalysis{PayerID: payerID, Intent: intent, Validation: v}, nil
}

func shortHash(h string) string {
	if len(h) > fileHashPrefixLen {
		return h[:fileHashPrefixLen]
	}
	return h
}
