package log

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/mathedit/internal/config"
)

var defaultLogger = zap.NewNop()

func Get() *zap.Logger {
	return defaultLogger
}

// Set replaces the process logger. A nil logger discards everything.
func Set(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultLogger = logger
}

// New builds a logger from the log section of the configuration. It is
// a no-op logger unless logging is enabled.
func New(c config.ConfigLog) (*zap.Logger, error) {
	if !c.Enabled {
		return zap.NewNop(), nil
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	if c.Verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zapConfig.Development = true
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if c.Path != "" {
		zapConfig.OutputPaths = []string{c.Path}
		zapConfig.ErrorOutputPaths = []string{c.Path}
	}

	l, err := zapConfig.Build()
	return l, errors.WithStack(err)
}

func Flush() {
	_ = defaultLogger.Sync()
}
