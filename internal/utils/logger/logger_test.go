package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrator.log")
	cfg := DefaultConfig()
	cfg.LogFile = path
	cfg.Quiet = true

	l, err := New(cfg)
	require.NoError(t, err)

	WithAttempt(l.Logger, "attempt-1", "Mint111").Info("Migration started")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Migration started", entry["msg"])
	assert.Equal(t, "attempt-1", entry["attempt_id"])
	assert.Equal(t, "Mint111", entry["token"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestWithAttempt_GeneratesID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrator.log")
	l, err := New(&Config{LogFile: path, Quiet: true})
	require.NoError(t, err)

	WithAttempt(l.Logger, "", "Mint111").Info("x")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Len(t, entry["attempt_id"], 36)
}

func TestNew_DebugOnlyInDevelopment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrator.log")
	l, err := New(&Config{LogFile: path, Quiet: true})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("shown")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hidden")
	assert.Contains(t, string(raw), "shown")
}
