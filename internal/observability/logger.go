package observability

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

// InitLogger builds the process logger. Environments ending in "-dev" get the
// console encoder; everything else logs JSON. The logger also replaces zap's globals.
func InitLogger(appEnv, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.HasSuffix(appEnv, "-dev") || appEnv == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build(zap.Fields(zap.String("app", appEnv)))
	if err != nil {
		return nil, err
	}
	logger.Store(l)
	zap.ReplaceGlobals(l)
	return l, nil
}

// L returns the process logger, or a no-op logger before InitLogger runs.
func L() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}
