package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
database:
  mysql:
    dsn: "user:pass@tcp(db:3306)/tutor"
llm:
  api_key: "file-key"
  model: "gpt-test"
  request_timeout: "15s"
  prompt:
    ref_start: "[[CTX]]"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads yaml and applies defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "user:pass@tcp(db:3306)/tutor", cfg.Database.MySQL.DSN)
		assert.Equal(t, "gpt-test", cfg.LLM.Model)
		assert.Equal(t, 15*time.Second, cfg.LLM.RequestTimeout)
		assert.Equal(t, "[[CTX]]", cfg.LLM.Prompt.RefStart)

		assert.Equal(t, "grading-tasks", cfg.Kafka.Topic)
		assert.Equal(t, 3, cfg.Kafka.MaxAttempts)
		assert.Equal(t, 2*time.Second, cfg.Kafka.RetryBackoff)
		assert.Equal(t, 24, cfg.JWT.AccessTokenExpireHours)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("TUTOR_LLM_API_KEY", "env-key")

		cfg, err := Load(writeConfig(t, sampleConfig))
		require.NoError(t, err)
		assert.Equal(t, "env-key", cfg.LLM.APIKey)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
