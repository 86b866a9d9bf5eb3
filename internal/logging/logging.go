// Package logging builds the zap logger every peer process attaches
// its rank, run id, and superstep counter to.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Option customises the zap config New builds from.
type Option func(*zap.Config)

// WithLevel parses level ("debug", "info", "warn", "error") and
// applies it, falling back to info on a bad value.
func WithLevel(level string) Option {
	return func(c *zap.Config) {
		var lvl zapcore.Level
		if err := lvl.Set(level); err != nil {
			lvl = zapcore.InfoLevel
		}
		c.Level = zap.NewAtomicLevelAt(lvl)
	}
}

// WithFormat selects "json" or "console" encoding.
func WithFormat(format string) Option {
	return func(c *zap.Config) {
		switch format {
		case FormatJSON, FormatConsole:
			c.Encoding = format
		default:
			c.Encoding = FormatConsole
		}
	}
}

// New builds a *zap.SugaredLogger tagged with this peer's rank and the
// run's UUID, applying opts over a production base config.
func New(rank int, runID string, opts ...Option) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = FormatConsole
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	for _, opt := range opts {
		opt(&cfg)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar().With("rank", rank, "run_id", runID), nil
}

// WithSuperstep returns a derived logger carrying the current
// superstep number, threaded through partition.Run's per-iteration log
// lines.
func WithSuperstep(log *zap.SugaredLogger, superstep int) *zap.SugaredLogger {
	return log.With("superstep", superstep)
}
