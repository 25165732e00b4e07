package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docflow.log")

	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	logger.Info("Document event")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Document event"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docflow.log")

	logger, err := NewLogger(LoggerConfig{Level: "chatty", OutputPath: path, Format: "console"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
