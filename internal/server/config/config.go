// Package config handles configuration for the voicepay server and CLI,
// including defaults, environment, a JSON or YAML file, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreMemory   = "memory"
)

// Analyzer providers.
const (
	AnalyzerGemini = "gemini"
	AnalyzerOpenAI = "openai"
	AnalyzerFake   = "fake"
)

// Archive drivers.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// Config holds runtime settings.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - StoreDriver: enrollment store, one of sqlite, postgres, badger, memory.
//   - DatabaseDSN: SQLite file or PostgreSQL DSN (pgx), depending on StoreDriver.
//   - BadgerDir: data directory of the badger store.
//   - SimilarityThreshold: minimum cosine similarity for a match.
//   - ExtractionWorkers: concurrent voiceprint extractions.
//   - AnalyzerProvider / AnalyzerTimeout: language model used for secrets and intents.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - SessionTokenValidityDuration / AdminTokenValidityDuration: token lifetimes.
//   - ArchiveDriver / ArchiveDir: where enrollment samples are kept.
//   - ArchiveKey: passphrase sealing archived samples; stored in clear when empty.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: S3 archive settings.
type Config struct {
	EndpointAddrGRPC string
	StoreDriver      string
	DatabaseDSN      string
	BadgerDir        string

	SimilarityThreshold float64
	ExtractionWorkers   int

	AnalyzerProvider string
	AnalyzerTimeout  time.Duration
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string

	SecretKey                    string
	SessionTokenValidityDuration time.Duration
	AdminTokenValidityDuration   time.Duration

	ArchiveDriver  string
	ArchiveDir     string
	ArchiveKey     string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	LogLevel string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.StoreDriver = StoreSQLite
	c.DatabaseDSN = "voice_auth.db"
	c.BadgerDir = "voice_auth.badger"
	c.SimilarityThreshold = 0.85
	c.ExtractionWorkers = 2
	c.AnalyzerProvider = AnalyzerGemini
	c.AnalyzerTimeout = 30 * time.Second
	c.GeminiModel = "gemini-2.5-flash"
	c.OpenAIModel = "gpt-4o-audio-preview"
	c.SecretKey = "secretKey"
	c.SessionTokenValidityDuration = 5 * time.Minute
	c.AdminTokenValidityDuration = 12 * time.Hour
	c.ArchiveDriver = ArchiveNone
	c.ArchiveDir = "samples"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "voice-samples"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig builds a Config from os.Args.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}

// Load applies, in order: defaults, .env and environment variables, the
// file named by -c/-config, and finally the short flags found in args.
// Malformed values panic, as the process cannot start with them.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	loadEnv(cfg)
	parseFile(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold %v outside (0, 1]", c.SimilarityThreshold))
	}
	if c.ExtractionWorkers <= 0 {
		errs = append(errs, fmt.Errorf("extraction workers must be positive, got %d", c.ExtractionWorkers))
	}
	if !slices.Contains([]string{StoreSQLite, StorePostgres, StoreBadger, StoreMemory}, c.StoreDriver) {
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if !slices.Contains([]string{AnalyzerGemini, AnalyzerOpenAI, AnalyzerFake}, c.AnalyzerProvider) {
		errs = append(errs, fmt.Errorf("unknown analyzer provider %q", c.AnalyzerProvider))
	}
	if !slices.Contains([]string{ArchiveNone, ArchiveLocal, ArchiveS3}, c.ArchiveDriver) {
		errs = append(errs, fmt.Errorf("unknown archive driver %q", c.ArchiveDriver))
	}
	if c.AnalyzerTimeout <= 0 {
		errs = append(errs, errors.New("analyzer timeout must be positive"))
	}
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}

	return errors.Join(errs...)
}
