// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"fmt"

	"github.com/juju/ftoklock/core/logger"
)

// CheckLog is satisfied by *check.C and *testing.T.
type CheckLog interface {
	Logf(string, ...any)
}

// WrapCheckLog returns a logger.Logger that writes to the test log.
func WrapCheckLog(log CheckLog) logger.Logger {
	return checkLogger{log: log}
}

type checkLogger struct {
	log  CheckLog
	name string
}

func (c checkLogger) Criticalf(_ context.Context, msg string, args ...any) {
	c.logf("CRITICAL", msg, args...)
}

func (c checkLogger) Errorf(_ context.Context, msg string, args ...any) {
	c.logf("ERROR", msg, args...)
}

func (c checkLogger) Warningf(_ context.Context, msg string, args ...any) {
	c.logf("WARNING", msg, args...)
}

func (c checkLogger) Infof(_ context.Context, msg string, args ...any) {
	c.logf("INFO", msg, args...)
}

func (c checkLogger) Debugf(_ context.Context, msg string, args ...any) {
	c.logf("DEBUG", msg, args...)
}

func (c checkLogger) Tracef(_ context.Context, msg string, args ...any) {
	c.logf("TRACE", msg, args...)
}

func (c checkLogger) IsDebugEnabled() bool { return true }

func (c checkLogger) Child(name string) logger.Logger {
	if c.name != "" {
		name = c.name + "." + name
	}
	return checkLogger{log: c.log, name: name}
}

func (c checkLogger) logf(level, msg string, args ...any) {
	prefix := level
	if c.name != "" {
		prefix = fmt.Sprintf("%s %s", level, c.name)
	}
	c.log.Logf(prefix+": "+msg, args...)
}
