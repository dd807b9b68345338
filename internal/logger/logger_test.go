package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/questai/mongodb-tools-api/internal/logger"
)

func observed(level zapcore.Level) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return logger.FromZap(zap.New(core)), logs
}

func TestWithFields(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)

	log.WithFields("request_id", "req-1").Info("handled", "status", 200)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "handled", entry.Message)
	assert.Equal(t, map[string]any{"request_id": "req-1", "status": int64(200)}, entry.ContextMap())
}

func TestWithError(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)

	log.WithError(errors.New("connection refused")).Error("lookup failed")
	assert.Same(t, log, log.WithError(nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "connection refused", logs.All()[0].ContextMap()["error"])
}

func TestLevelFiltering(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)

	log.Debug("hidden")
	log.Warn("shown")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestNop(t *testing.T) {
	log := logger.Nop()

	log.WithFields("k", "v").WithError(errors.New("x")).Error("discarded")
	assert.NoError(t, log.Sync())
}
