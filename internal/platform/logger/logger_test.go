package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewByMode(t *testing.T) {
	dev, err := New("dev")
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	rel, err := New("release")
	require.NoError(t, err)
	assert.False(t, rel.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, rel.Core().Enabled(zapcore.InfoLevel))
}
