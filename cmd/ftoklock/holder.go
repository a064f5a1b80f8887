// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/worker/v4"
	"gopkg.in/tomb.v2"

	corelogger "github.com/juju/ftoklock/core/logger"
	"github.com/juju/ftoklock/internal/semlock"
)

// releaser is the part of a semlock.Lock the holder needs.
type releaser interface {
	Release(context.Context, semlock.ReleaseArgs) error
}

// holderConfig holds the dependencies of a holder.
type holderConfig struct {
	Lock    releaser
	Release semlock.ReleaseArgs
	Clock   clock.Clock
	Logger  corelogger.Logger

	// Hold is how long to keep the lock. Zero holds it until the holder
	// is killed.
	Hold time.Duration
}

// Validate checks the configuration.
func (c holderConfig) Validate() error {
	if c.Lock == nil {
		return errors.NotValidf("nil Lock")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if c.Hold < 0 {
		return errors.NotValidf("negative Hold")
	}
	return nil
}

// holder keeps a lock until it is killed or its hold expires, then
// releases it.
type holder struct {
	tomb   tomb.Tomb
	config holderConfig
}

var _ worker.Worker = (*holder)(nil)

func newHolder(config holderConfig) (*holder, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	h := &holder{config: config}
	h.tomb.Go(h.loop)
	return h, nil
}

// Kill asks the holder to release the lock.
func (h *holder) Kill() {
	h.tomb.Kill(nil)
}

// Wait waits for the lock to be released and returns the result.
func (h *holder) Wait() error {
	return h.tomb.Wait()
}

// Dead is closed once the lock has been released.
func (h *holder) Dead() <-chan struct{} {
	return h.tomb.Dead()
}

func (h *holder) loop() error {
	ctx := context.Background()

	var expired <-chan time.Time
	if h.config.Hold > 0 {
		expired = h.config.Clock.After(h.config.Hold)
	}
	select {
	case <-h.tomb.Dying():
		h.config.Logger.Debugf(ctx, "releasing lock on request")
	case <-expired:
		h.config.Logger.Debugf(ctx, "releasing lock after %v", h.config.Hold)
	}
	return errors.Annotate(h.config.Lock.Release(ctx, h.config.Release), "releasing lock")
}
