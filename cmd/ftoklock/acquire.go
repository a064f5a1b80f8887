// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/worker/v4"

	"github.com/juju/ftoklock/cmd"
	"github.com/juju/ftoklock/internal/semlock"
)

const acquireDoc = `
Acquire the lock of a file and hold it until interrupted, or for the
duration given with --hold. With --nowait the command fails at once if
another process holds the lock.

If the process is killed while holding the lock, the kernel releases it.
`

type acquireCommand struct {
	resourceCommand

	noWait         bool
	increment      bool
	bypass         bool
	removeIfUnused bool
	hold           time.Duration

	clock   clock.Clock
	signals func(chan<- os.Signal) func()
}

func newAcquireCommand() *acquireCommand {
	return &acquireCommand{
		resourceCommand: newResourceCommand(),
		clock:           clock.WallClock,
		signals:         notifyTermination,
	}
}

func notifyTermination(ch chan<- os.Signal) func() {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return func() { signal.Stop(ch) }
}

func (c *acquireCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "acquire",
		Args:        "<path>",
		Purpose:     "acquire and hold the lock of a file",
		Doc:         acquireDoc,
		Intersperse: true,
	}
}

func (c *acquireCommand) SetFlags(f *gnuflag.FlagSet) {
	c.resourceCommand.SetFlags(f)
	f.BoolVar(&c.noWait, "nowait", false, "Fail instead of waiting if the lock is held")
	f.BoolVar(&c.increment, "incr", false, "Attach to the file by incrementing its reference counter")
	f.BoolVar(&c.bypass, "bypass", false, "Proceed without the lock if the wait times out")
	f.BoolVar(&c.removeIfUnused, "remove-if-unused", false, "Remove the semaphore set on release if nothing else is attached")
	f.DurationVar(&c.hold, "hold", 0, "How long to hold the lock; zero holds it until interrupted")
}

func (c *acquireCommand) Init(args []string) error {
	if c.hold < 0 {
		return errors.NotValidf("negative --hold")
	}
	if c.removeIfUnused && !c.increment {
		return errors.New("--remove-if-unused requires --incr")
	}
	return c.resourceCommand.Init(args)
}

func (c *acquireCommand) Run(ctx *cmd.Context) error {
	identity, p, err := c.protocol(ctx)
	if err != nil {
		return errors.Trace(err)
	}

	lock, err := p.Acquire(ctx, identity, semlock.AcquireArgs{
		Increment:   c.increment,
		FailFast:    c.noWait,
		AllowBypass: c.bypass,
	})
	if err != nil {
		return errors.Trace(err)
	}
	switch {
	case lock.Bypassed():
		ctx.Infof("lock for %s bypassed", identity.Path)
	case lock.CounterHalted():
		ctx.Infof("acquired lock for %s (key %#08x, semid %d); reference counter saturated", identity.Path, uint32(lock.Key()), lock.SemID())
	default:
		ctx.Infof("acquired lock for %s (key %#08x, semid %d)", identity.Path, uint32(lock.Key()), lock.SemID())
	}

	h, err := newHolder(holderConfig{
		Lock: lock,
		Release: semlock.ReleaseArgs{
			Decrement:      c.increment,
			RemoveIfUnused: c.removeIfUnused,
		},
		Clock:  c.clock,
		Logger: logger,
		Hold:   c.hold,
	})
	if err != nil {
		_ = lock.Release(ctx, semlock.ReleaseArgs{Decrement: c.increment})
		return errors.Trace(err)
	}

	signals := make(chan os.Signal, 1)
	stop := c.signals(signals)
	defer stop()

	select {
	case sig := <-signals:
		logger.Debugf(ctx, "received %v", sig)
	case <-h.Dead():
	}
	if err := worker.Stop(h); err != nil {
		return errors.Trace(err)
	}
	ctx.Infof("released lock for %s", identity.Path)
	return nil
}
