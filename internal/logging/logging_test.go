package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
)

func TestNew_UsesConfiguredLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"

	logger, err := New(cfg)

	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, logger.Level.Level())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestLogger_OnConfigChange(t *testing.T) {
	logger, err := New(config.Default())
	require.NoError(t, err)

	next := config.Default()
	next.LogLevel = "debug"
	logger.OnConfigChange(next)
	assert.Equal(t, zapcore.DebugLevel, logger.Level.Level())

	next.LogLevel = "nonsense"
	logger.OnConfigChange(next)
	assert.Equal(t, zapcore.DebugLevel, logger.Level.Level())
}

func TestNew_RejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"

	_, err := New(cfg)

	assert.Error(t, err)
}
