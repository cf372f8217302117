// Package execlog centralizes zap.Logger construction so the library and
// the CLI share one construction path, the way cmd/zmux-server/main.go
// built its single process-wide logger and handed it down via
// constructor injection instead of a package global.
package execlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a development-style console logger tuned for an operator
// terminal: no timestamp key (terminals and systemd already stamp
// lines), colored level names, no stack traces or caller info for
// everyday noise.
func New(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zap.Must(cfg.Build())
}

// Quiet returns a logger that only surfaces warnings and above, used
// when the CLI's -q/--quiet flag is given.
func Quiet() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return zap.Must(cfg.Build())
}

// Nop returns a logger that discards everything, for library use where
// the caller hasn't supplied one — constructors still require an
// explicit *zap.Logger argument (never a package global) but tests and
// simple embedders can pass execlog.Nop().
func Nop() *zap.Logger { return zap.NewNop() }
