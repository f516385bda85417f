package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/voicepay/internal/dbx"
	"github.com/dmitrijs2005/voicepay/internal/logging"
	"github.com/dmitrijs2005/voicepay/internal/server/analyzer"
	"github.com/dmitrijs2005/voicepay/internal/server/audiostore"
	"github.com/dmitrijs2005/voicepay/internal/server/config"
	"github.com/dmitrijs2005/voicepay/internal/server/services"
	"github.com/dmitrijs2005/voicepay/internal/server/store"
	"github.com/dmitrijs2005/voicepay/internal/voiceprint"
)

// Replies of the "fake" analyzer provider, used for local demos without a
// model: every sample speaks 1-2-3-4-5 and no transcript holds a payment.
const (
	FakeSecretReply = `{"numbers": [1, 2, 3, 4, 5]}`
	FakeIntentReply = `{"success": true, "has_payment_command": false, "recipients": null, "action": null, "amounts": null, "currency": "usd", "confidence": 0.5}`
)

// Components is the object graph shared by the server and the CLI.
type Components struct {
	Store    store.Store
	Analyzer analyzer.Analyzer
	Archive  audiostore.Archive
	Voice    *services.VoiceAuthService
	Tokens   *services.TokenService
}

// Build wires the store, analyzer, archive and services described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	st, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	an, err := NewAnalyzer(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("analyzer init error: %w", err)
	}

	arch, err := NewArchive(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	voice := services.NewVoiceAuthService(
		st,
		voiceprint.NewExtractor(),
		analyzer.NewSecretExtractor(an, cfg.AnalyzerTimeout),
		analyzer.NewIntentExtractor(an, cfg.AnalyzerTimeout),
		arch,
		logger.With("module", "voiceauth"),
		services.Options{Threshold: cfg.SimilarityThreshold, Workers: cfg.ExtractionWorkers},
	)

	return &Components{
		Store:    st,
		Analyzer: an,
		Archive:  arch,
		Voice:    voice,
		Tokens:   services.NewTokenService(cfg),
	}, nil
}

func (c *Components) Close() error {
	return c.Store.Close()
}

// OpenStore opens and, for SQL drivers, migrates the configured store.
func OpenStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return store.OpenSQL(ctx, dbx.DriverSQLite, cfg.DatabaseDSN, store.WithLocation(cfg.DatabaseDSN))
	case config.StorePostgres:
		return store.OpenSQL(ctx, dbx.DriverPostgres, cfg.DatabaseDSN, store.WithLocation("postgres"))
	case config.StoreBadger:
		return store.OpenBadger(store.BadgerOptions{Dir: cfg.BadgerDir, Logger: logger})
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func NewAnalyzer(ctx context.Context, cfg *config.Config) (analyzer.Analyzer, error) {
	switch cfg.AnalyzerProvider {
	case config.AnalyzerGemini:
		return analyzer.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.AnalyzerOpenAI:
		return analyzer.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case config.AnalyzerFake:
		f := analyzer.NewFake()
		f.DefaultAudio = FakeSecretReply
		f.DefaultText = FakeIntentReply
		return f, nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider %q", cfg.AnalyzerProvider)
	}
}

// NewArchive opens the configured archive, sealed when ArchiveKey is set.
func NewArchive(ctx context.Context, cfg *config.Config) (audiostore.Archive, error) {
	arch, err := openArchive(ctx, cfg)
	if err != nil || cfg.ArchiveKey == "" {
		return arch, err
	}
	if _, ok := arch.(audiostore.Nop); ok {
		return arch, nil
	}
	return audiostore.NewSealed(arch, cfg.ArchiveKey), nil
}

func openArchive(ctx context.Context, cfg *config.Config) (audiostore.Archive, error) {
	switch cfg.ArchiveDriver {
	case config.ArchiveNone, "":
		return audiostore.Nop{}, nil
	case config.ArchiveLocal:
		return audiostore.NewLocal(cfg.ArchiveDir)
	case config.ArchiveS3:
		return audiostore.NewS3Archive(ctx, audiostore.S3Config{
			Region:       cfg.S3Region,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
		})
	default:
		return nil, errors.New("unknown archive driver " + cfg.ArchiveDriver)
	}
}
