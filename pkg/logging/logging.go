package logging

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	AppName string
	Level   string
	Pretty  bool
}

// NewZapConfig returns a JSON production config, or a colored console config when Pretty is set.
func NewZapConfig(cfg Config) (zap.Config, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Pretty {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.AppName != "" {
		zc.InitialFields = map[string]any{"app": cfg.AppName}
	}
	return zc, nil
}

// NewLogger builds the service logger. The returned func flushes buffered entries.
func NewLogger(cfg Config) (ectologger.Logger, func(), error) {
	zc, err := NewZapConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	zapLogger, err := zc.Build()
	if err != nil {
		return nil, nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), func() { _ = zapLogger.Sync() }, nil
}
