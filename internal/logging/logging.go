package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON at info level in production, console
// at debug level otherwise.
func New(production bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if production {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, fmt.Errorf("initialize zap logger: %w", err)
	}
	return l.Sugar(), nil
}

// NewQuiet logs warnings and above to stderr, for command line use.
func NewQuiet() (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("initialize zap logger: %w", err)
	}
	return l.Sugar(), nil
}
