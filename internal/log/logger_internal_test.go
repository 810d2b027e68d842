package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := newLogger(&buf, Options{Env: "production", Level: slog.LevelInfo})
	defer func() { _ = closeFn() }()

	logger.Debug("hidden")
	logger.Info("visible", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewLogger_LocalIsTextWithoutColorWhenFileSet(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closeFn := newLogger(&buf, Options{Env: "local", Level: slog.LevelInfo, File: path})

	logger.Info("hello")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), "\x1b[", "no ANSI codes when a file is attached")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
