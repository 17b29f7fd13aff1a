// Package logging builds the zap logger shared by the binaries.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
)

// Logger pairs a zap logger with the atomic level it was built on, so the
// level can be changed while the logger is in use.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// New builds a JSON logger in production and a console logger elsewhere.
func New(cfg *config.Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	// The shell owns stdout.
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: logger, Level: zc.Level}, nil
}

// SetLevel changes the level of a running logger.
func (l *Logger) SetLevel(text string) error {
	level, err := zapcore.ParseLevel(text)
	if err != nil {
		return err
	}
	if l.Level.Level() != level {
		l.Level.SetLevel(level)
		l.Info("Log level changed", zap.String("level", level.String()))
	}
	return nil
}

// OnConfigChange adapts SetLevel to a config watcher callback.
func (l *Logger) OnConfigChange(cfg *config.Config) {
	if err := l.SetLevel(cfg.LogLevel); err != nil {
		l.Warn("Ignoring invalid log level", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
}
