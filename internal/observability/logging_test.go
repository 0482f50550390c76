package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/qudex/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"})
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestComponent_NilParentIsNop(t *testing.T) {
	logger := Component(nil, "resolver")
	require.NotNil(t, logger)
	logger.Info("discarded")
}

func TestComponent_NamesChild(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := Component(zap.New(core), "loader")
	logger.Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "loader", logs.All()[0].LoggerName)
}
