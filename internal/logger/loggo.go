// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package logger

import (
	"context"

	"github.com/juju/loggo/v2"

	"github.com/juju/ftoklock/core/logger"
)

// callDepth skips the wrapper frames so loggo records the caller's
// location.
const callDepth = 2

// GetLogger returns the named loggo logger wrapped as a logger.Logger.
func GetLogger(name string) logger.Logger {
	return WrapLoggo(loggo.GetLogger(name))
}

// WrapLoggo wraps a loggo.Logger so it satisfies logger.Logger.
func WrapLoggo(l loggo.Logger) logger.Logger {
	return loggoLogger{logger: l}
}

// ConfigureLoggers configures loggers from a loggo specification such as
// "<root>=INFO;ftoklock.semlock=DEBUG".
func ConfigureLoggers(spec string) error {
	if spec == "" {
		return nil
	}
	return loggo.ConfigureLoggers(spec)
}

type loggoLogger struct {
	logger loggo.Logger
}

func (l loggoLogger) Criticalf(_ context.Context, msg string, args ...any) {
	l.logf(loggo.CRITICAL, msg, args...)
}

func (l loggoLogger) Errorf(_ context.Context, msg string, args ...any) {
	l.logf(loggo.ERROR, msg, args...)
}

func (l loggoLogger) Warningf(_ context.Context, msg string, args ...any) {
	l.logf(loggo.WARNING, msg, args...)
}

func (l loggoLogger) Infof(_ context.Context, msg string, args ...any) {
	l.logf(loggo.INFO, msg, args...)
}

func (l loggoLogger) Debugf(_ context.Context, msg string, args ...any) {
	l.logf(loggo.DEBUG, msg, args...)
}

func (l loggoLogger) Tracef(_ context.Context, msg string, args ...any) {
	l.logf(loggo.TRACE, msg, args...)
}

func (l loggoLogger) logf(level loggo.Level, msg string, args ...any) {
	l.logger.LogCallf(callDepth, level, msg, args...)
}

func (l loggoLogger) IsDebugEnabled() bool {
	return l.logger.IsDebugEnabled()
}

func (l loggoLogger) Child(name string) logger.Logger {
	return loggoLogger{logger: l.logger.Child(name)}
}
