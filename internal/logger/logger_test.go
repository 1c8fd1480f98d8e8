package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uk-eta-backend/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("nonsense"))
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewHandler(&buf, logger.Config{Level: "info", Format: "json"}))

	log.Debug("hidden")
	log.Info("application submitted", "reference", "ETA-20261018-ABCDEF")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "application submitted", entry["msg"])
	assert.Equal(t, "ETA-20261018-ABCDEF", entry["reference"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewHandler(&buf, logger.Config{Level: "debug", Format: "text"}))

	log.Debug("draft created", "draft_id", "d1")
	assert.Contains(t, buf.String(), "draft_id=d1")
}
