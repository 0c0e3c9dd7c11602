package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, zapcore.InfoLevel)

	logger.Debug("hidden")
	logger.Named("apply").Info("applied steps", zap.Int("steps", 3))
	assert.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "apply")
	assert.Contains(t, out, "applied steps")
	assert.Contains(t, out, `{"steps": 3}`)
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing happens")
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
