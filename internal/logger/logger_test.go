package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitialize(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	var buf bytes.Buffer
	l, err := Initialize(&buf, "warn")
	require.NoError(t, err)
	assert.Same(t, l, Get())

	Debugw("hidden", "k", "v")
	Infof("hidden %d", 1)
	Warnw("shown", "submodule", "lib")
	Errorw("also shown")
	Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"submodule": "lib"`)
	assert.Contains(t, out, "ERROR")

	_, err = Initialize(&buf, "nope")
	assert.Error(t, err)
}
