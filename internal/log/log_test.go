package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stateful/mathedit/internal/config"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     config.ConfigLog
		debug   bool
		enabled bool
	}{
		{name: "disabled", cfg: config.ConfigLog{Verbose: true}},
		{name: "enabled", cfg: config.ConfigLog{Enabled: true}, enabled: true},
		{name: "verbose", cfg: config.ConfigLog{Enabled: true, Verbose: true}, enabled: true, debug: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := New(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.enabled, logger.Core().Enabled(zapcore.InfoLevel))
			assert.Equal(t, tc.debug, logger.Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNew_Path(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mathedit.log")
	logger, err := New(config.ConfigLog{Enabled: true, Path: path})
	require.NoError(t, err)

	logger.Info("rendered", zap.String("source", "x^2"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source":"x^2"`)
}

func TestSet(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	logger := zap.NewExample()
	Set(logger)
	assert.Same(t, logger, Get())

	Set(nil)
	assert.NotNil(t, Get())
	assert.False(t, Get().Core().Enabled(zapcore.ErrorLevel))
	Flush()
}
