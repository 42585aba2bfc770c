//go:build unit

package zap

import (
	"context"
	"testing"

	logpkg "github.com/anil-trigital/GST/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(level logpkg.Level) (*Logger, *observer.ObservedLogs) {
	atomicLevel := zap.NewAtomicLevelAt(logLevelToZap(level))
	core, logs := observer.New(atomicLevel)

	return &Logger{
		logger:      zap.New(core),
		atomicLevel: atomicLevel,
	}, logs
}

func TestLogDispatchesByLevel(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger(logpkg.LevelDebug)
	ctx := context.Background()

	logger.Log(ctx, logpkg.LevelDebug, "d")
	logger.Log(ctx, logpkg.LevelInfo, "i")
	logger.Log(ctx, logpkg.LevelWarn, "w")
	logger.Log(ctx, logpkg.LevelError, "e")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestLogSuppressedBelowConfiguredLevel(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger(logpkg.LevelWarn)

	logger.Log(context.Background(), logpkg.LevelInfo, "dropped")
	logger.Log(context.Background(), logpkg.LevelError, "kept")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}

func TestLogCarriesFields(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger(logpkg.LevelInfo)

	logger.Log(context.Background(), logpkg.LevelInfo, "msg",
		logpkg.String("k", "v"),
		logpkg.Int64("n", 7),
	)

	entries := logs.All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "v", fields["k"])
	assert.Equal(t, int64(7), fields["n"])
}

func TestWithAddsPersistentFields(t *testing.T) {
	t.Parallel()

	logger, logs := newObservedLogger(logpkg.LevelInfo)

	child := logger.With(logpkg.String("component", "batch"))
	child.Log(context.Background(), logpkg.LevelInfo, "msg")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "batch", entries[0].ContextMap()["component"])
}

func TestEnabled(t *testing.T) {
	t.Parallel()

	logger, _ := newObservedLogger(logpkg.LevelInfo)

	assert.True(t, logger.Enabled(logpkg.LevelError))
	assert.True(t, logger.Enabled(logpkg.LevelInfo))
	assert.False(t, logger.Enabled(logpkg.LevelDebug))
}

func TestNilLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var logger *Logger

	assert.NotPanics(t, func() {
		logger.Log(context.Background(), logpkg.LevelInfo, "msg")
	})
}
