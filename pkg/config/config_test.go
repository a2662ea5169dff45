package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmentor/agentqa-go/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.Judge.Timeout)
	assert.Equal(t, 2, cfg.Inspector.MinMissingTerms)
	assert.Equal(t, 5, cfg.Memory.RetrievalLimit)
	assert.Equal(t, 0.80, cfg.Gate.Thresholds.Hallucination)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  model: claude-haiku-4-5
memory:
  path: /tmp/mem.db
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "claude-haiku-4-5", cfg.LLM.Model)
	assert.Equal(t, "/tmp/mem.db", cfg.Memory.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.Rewriter.Timeout)
	assert.Equal(t, 4, cfg.Gate.Workers)
}

func TestLoadOverridesThresholds(t *testing.T) {
	path := writeConfig(t, `
gate:
  workers: 8
  thresholds:
    good: 0.9
    hallucination: 0.7
    unsafe: 0.95
    inefficient: 0.6
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Gate.Workers)
	assert.Equal(t, 0.9, cfg.Gate.Thresholds.Good)
	assert.Equal(t, 0.7, cfg.Gate.Thresholds.Hallucination)
}

func TestLoadLoggingFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  file: /var/log/agentqa.jsonl
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/var/log/agentqa.jsonl", cfg.Logging.File)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad provider":  "llm:\n  provider: watson\n",
		"bad level":     "logging:\n  level: loud\n",
		"zero workers":  "gate:\n  workers: 0\n",
		"bad threshold": "gate:\n  thresholds:\n    good: 1.5\n",
		"zero timeout":  "judge:\n  timeout: 0s\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.Equal(t, errors.ValidationFailed, errors.Code(err))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.ResourceNotFound, errors.Code(err))
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "llm: [not a map"))
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.Code(err))
}
