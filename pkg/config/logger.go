package config

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// BuildLogger constructs a zap.Logger from a LoggerConfig, the same
// zap.NewDevelopmentConfig-derived shape as the teacher's
// pkg/consensus/logger.go (DisableCaller, DisableStacktrace, console
// encoding by default).
func (l LoggerConfig) BuildLogger() (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.DisableCaller = true
	zapCfg.DisableStacktrace = true

	level, err := zapcore.ParseLevel(orDefault(l.Level, "info"))
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = l.resolveEncoding()

	if l.Path != "" {
		zapCfg.OutputPaths = []string{l.Path}
		zapCfg.ErrorOutputPaths = []string{l.Path}
	}

	return zapCfg.Build()
}

// resolveEncoding picks console when attached to a TTY and the config
// left Encoding unset, json otherwise; mirrors the teacher's
// console-by-default developer config.
func (l LoggerConfig) resolveEncoding() string {
	if l.Encoding != "" {
		return l.Encoding
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "console"
	}
	return "json"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
