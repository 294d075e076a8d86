package logger

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/edisync/internal/config"
)

// Module exposes a configured Zap logger to the Fx container.
var Module = fx.Provide(New)

// New builds the service logger; callers own the cleanup via Fx lifecycle.
func New(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	logger, err := build(cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Syncing stderr fails on some platforms; nothing useful can be done.
			_ = logger.Sync()
			return nil
		},
	})

	return logger, nil
}

func build(cfg config.Config) (*zap.Logger, error) {
	logger, err := zapConfig(cfg.Observability).Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("environment", cfg.Observability.Environment),
	}
	if cfg.EDI.Provider != "" {
		fields = append(fields, zap.String("edi_provider", cfg.EDI.Provider))
	}
	if cfg.EDI.CompanyID != "" {
		fields = append(fields, zap.String("edi_company_id", cfg.EDI.CompanyID))
	}
	return logger.With(fields...), nil
}

// zapConfig returns a JSON production config, or a development console
// config when the encoding is "console".
func zapConfig(obs config.Observability) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(obs.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	if obs.LogEncoding == "console" {
		zapCfg := zap.NewDevelopmentConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapCfg
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = "json"
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	zapCfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	// Batch polls log one line per document; keep every line.
	zapCfg.Sampling = nil
	return zapCfg
}
