package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/edisync/internal/config"
)

func TestZapConfig(t *testing.T) {
	prod := zapConfig(config.Observability{LogLevel: "debug", LogEncoding: "json"})
	assert.Equal(t, "json", prod.Encoding)
	assert.Equal(t, zapcore.DebugLevel, prod.Level.Level())
	assert.Equal(t, "ts", prod.EncoderConfig.TimeKey)
	assert.Nil(t, prod.Sampling)

	dev := zapConfig(config.Observability{LogLevel: "nonsense", LogEncoding: "console"})
	assert.Equal(t, "console", dev.Encoding)
	assert.Equal(t, zapcore.InfoLevel, dev.Level.Level())
}

func TestBuild(t *testing.T) {
	cfg := config.Config{
		Observability: config.Observability{ServiceName: "edisync", LogLevel: "warn", LogEncoding: "json"},
		EDI:           config.EDI{Provider: "generic", CompanyID: "acme"},
	}
	logger, err := build(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
