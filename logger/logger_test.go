package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cydxin/presence-sdk/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "presence.log")
	cfg := &config.LoggerConfig{Output: "file", FilePath: path, Level: "debug"}

	l, err := NewLogger(cfg)
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.Equal(t, "json", cfg.Format)
}

func TestGetLogLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, getLogLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, getLogLevel("warn"))
	require.Equal(t, zapcore.InfoLevel, getLogLevel("bogus"))
}
