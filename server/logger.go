package server

import (
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-starter/config"
)

// NewLogger builds the root logger. Development gets pretty output at
// trace level; LOG_LEVEL overrides the level.
func NewLogger(cfg *config.Config) *glog.BaseLogger {
	level := glog.Info
	if cfg.IsDevelopment() {
		level = glog.Trace
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LogLevel)) {
	case "trace":
		level = glog.Trace
	case "debug":
		level = glog.Debug
	case "info":
		level = glog.Info
	case "warn", "warning":
		level = glog.Warn
	case "error":
		level = glog.Error
	}

	if cfg.IsDevelopment() {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(level),
			glog.WithName("app"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}

	return glog.NewLogger(
		glog.WithLevel(level),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}
