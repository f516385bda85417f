package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("DATABASE_URL", "postgres://db/voice")
	t.Setenv("VOICEPAY_WORKERS", "3")
	t.Setenv("VOICEPAY_ANALYZER_TIMEOUT", "12s")

	c := defaults()
	loadEnv(c)

	assert.Equal(t, "g-key", c.GeminiAPIKey)
	assert.Equal(t, "postgres://db/voice", c.DatabaseDSN)
	assert.Equal(t, 3, c.ExtractionWorkers)
	assert.Equal(t, 12*time.Second, c.AnalyzerTimeout)
}

func TestLoadEnv_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	os.Unsetenv("VOICEPAY_ARCHIVE")
	os.Unsetenv("VOICEPAY_ARCHIVE_DIR")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VOICEPAY_ARCHIVE=local\nVOICEPAY_ARCHIVE_DIR=/tmp/samples\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("VOICEPAY_ARCHIVE")
		os.Unsetenv("VOICEPAY_ARCHIVE_DIR")
	})

	c := defaults()
	loadEnv(c)

	assert.Equal(t, ArchiveLocal, c.ArchiveDriver)
	assert.Equal(t, "/tmp/samples", c.ArchiveDir)
}

func TestLoadEnv_BadNumberPanics(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VOICEPAY_THRESHOLD", "high")
	assert.Panics(t, func() { loadEnv(defaults()) })
}
