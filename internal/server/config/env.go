package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadEnv reads .env from the working directory when it exists, without
// overriding variables already set, and then applies the environment.
func loadEnv(c *Config) {
	_ = godotenv.Load()

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(fmt.Errorf("%s: %w", key, err))
			}
			*dst = d
		}
	}

	str("VOICEPAY_GRPC_ADDR", &c.EndpointAddrGRPC)
	str("VOICEPAY_STORE_DRIVER", &c.StoreDriver)
	str("DATABASE_URL", &c.DatabaseDSN)
	str("VOICEPAY_DATABASE_DSN", &c.DatabaseDSN)
	str("VOICEPAY_BADGER_DIR", &c.BadgerDir)
	str("VOICEPAY_ANALYZER", &c.AnalyzerProvider)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("VOICEPAY_GEMINI_MODEL", &c.GeminiModel)
	str("OPENAI_API_KEY", &c.OpenAIAPIKey)
	str("VOICEPAY_OPENAI_MODEL", &c.OpenAIModel)
	str("OPENAI_BASE_URL", &c.OpenAIBaseURL)
	str("VOICEPAY_SECRET_KEY", &c.SecretKey)
	str("VOICEPAY_ARCHIVE", &c.ArchiveDriver)
	str("VOICEPAY_ARCHIVE_DIR", &c.ArchiveDir)
	str("VOICEPAY_ARCHIVE_KEY", &c.ArchiveKey)
	str("VOICEPAY_S3_USER", &c.S3RootUser)
	str("VOICEPAY_S3_PASSWORD", &c.S3RootPassword)
	str("VOICEPAY_S3_BUCKET", &c.S3Bucket)
	str("VOICEPAY_S3_REGION", &c.S3Region)
	str("VOICEPAY_S3_ENDPOINT", &c.S3BaseEndpoint)
	str("VOICEPAY_LOG_LEVEL", &c.LogLevel)

	dur("VOICEPAY_ANALYZER_TIMEOUT", &c.AnalyzerTimeout)
	dur("VOICEPAY_SESSION_TTL", &c.SessionTokenValidityDuration)
	dur("VOICEPAY_ADMIN_TTL", &c.AdminTokenValidityDuration)

	if v := os.Getenv("VOICEPAY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			panic(fmt.Errorf("VOICEPAY_THRESHOLD: %w", err))
		}
		c.SimilarityThreshold = f
	}
	if v := os.Getenv("VOICEPAY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("VOICEPAY_WORKERS: %w", err))
		}
		c.ExtractionWorkers = n
	}
}
