package common

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PROTOCOL_CONFIG", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("API_KEY", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, 4096, cfg.LLM.MaxTokens)
	assert.Equal(t, 64000, cfg.Chunk.MaxSize)
	assert.Equal(t, 3, cfg.Fields.PrefixChunks)
	assert.Equal(t, 20, cfg.Fields.MaxCountedOutcomes)
	assert.True(t, cfg.Extract.PdfcpuFallback)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("TEST_PROTOCOL_KEY", "from-file-env")
	content := `
llm:
  model: gpt-4o-mini
  api_key: ${TEST_PROTOCOL_KEY}
  timeout: 15s
chunk:
  max_size: 1000
database:
  dsn: /tmp/runs.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("DB_URL", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file-env", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model, "env overrides file")
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 1000, cfg.Chunk.MaxSize)
	assert.Equal(t, "/tmp/runs.db", cfg.Database.DSN)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
