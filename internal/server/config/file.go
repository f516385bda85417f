package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/voicepay/internal/flagx"
	"github.com/dmitrijs2005/voicepay/internal/timex"
	"github.com/goccy/go-yaml"
)

// FileConfig is the on-disk form of Config. Durations accept either a string
// such as "30s" or integer nanoseconds. Missing keys keep earlier values.
type FileConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	StoreDriver                  string         `json:"store_driver" yaml:"store_driver"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	BadgerDir                    string         `json:"badger_dir" yaml:"badger_dir"`
	SimilarityThreshold          float64        `json:"similarity_threshold" yaml:"similarity_threshold"`
	ExtractionWorkers            int            `json:"extraction_workers" yaml:"extraction_workers"`
	AnalyzerProvider             string         `json:"analyzer_provider" yaml:"analyzer_provider"`
	AnalyzerTimeout              timex.Duration `json:"analyzer_timeout" yaml:"analyzer_timeout"`
	GeminiAPIKey                 string         `json:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel                  string         `json:"gemini_model" yaml:"gemini_model"`
	OpenAIAPIKey                 string         `json:"openai_api_key" yaml:"openai_api_key"`
	OpenAIModel                  string         `json:"openai_model" yaml:"openai_model"`
	OpenAIBaseURL                string         `json:"openai_base_url" yaml:"openai_base_url"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration" yaml:"session_token_validity_duration"`
	AdminTokenValidityDuration   timex.Duration `json:"admin_token_validity_duration" yaml:"admin_token_validity_duration"`
	ArchiveDriver                string         `json:"archive_driver" yaml:"archive_driver"`
	ArchiveDir                   string         `json:"archive_dir" yaml:"archive_dir"`
	ArchiveKey                   string         `json:"archive_key" yaml:"archive_key"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c or -config, if any. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON. An unreadable or
// malformed file panics.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFile(args)

	// nothing to load
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	if flagx.IsYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	set(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	set(&config.StoreDriver, c.StoreDriver)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.BadgerDir, c.BadgerDir)
	set(&config.AnalyzerProvider, c.AnalyzerProvider)
	set(&config.GeminiAPIKey, c.GeminiAPIKey)
	set(&config.GeminiModel, c.GeminiModel)
	set(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	set(&config.OpenAIModel, c.OpenAIModel)
	set(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	set(&config.SecretKey, c.SecretKey)
	set(&config.ArchiveDriver, c.ArchiveDriver)
	set(&config.ArchiveDir, c.ArchiveDir)
	set(&config.ArchiveKey, c.ArchiveKey)
	set(&config.S3RootUser, c.S3RootUser)
	set(&config.S3RootPassword, c.S3RootPassword)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Region, c.S3Region)
	set(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&config.LogLevel, c.LogLevel)

	if c.SimilarityThreshold != 0 {
		config.SimilarityThreshold = c.SimilarityThreshold
	}
	if c.ExtractionWorkers != 0 {
		config.ExtractionWorkers = c.ExtractionWorkers
	}
	if c.AnalyzerTimeout.Duration != 0 {
		config.AnalyzerTimeout = c.AnalyzerTimeout.Duration
	}
	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.AdminTokenValidityDuration.Duration != 0 {
		config.AdminTokenValidityDuration = c.AdminTokenValidityDuration.Duration
	}
}
