// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/ftoklock/core/logger"
	"github.com/juju/ftoklock/internal/sysv"
)

const (
	// DefaultMode is the permission mode of created semaphore sets. Sets
	// are shared by unrelated processes, possibly of different users.
	DefaultMode os.FileMode = 0o666

	// DefaultRetryBudget is the number of times the protocol restarts
	// because the set vanished before it gives up.
	DefaultRetryBudget = 100

	// DefaultRetryDelay is the pause between restarts, giving the process
	// that removed the set time to finish.
	DefaultRetryDelay = time.Millisecond

	// DefaultWaitTimeout bounds a blocking wait for the lock.
	DefaultWaitTimeout = 96 * time.Second

	// DefaultLongWaitThreshold is how long a wait lasts before the long
	// wait hook runs.
	DefaultLongWaitThreshold = 30 * time.Second
)

// LongWait describes a wait that passed the long wait threshold.
type LongWait struct {
	Key       sysv.Key
	SemID     sysv.SemID
	HolderPID int
	Waited    time.Duration
}

// LongWaitFunc is called at most once per blocking wait once the wait has
// lasted longer than Config.LongWaitThreshold. It must not block for long:
// the wait resumes only after it returns.
type LongWaitFunc func(ctx context.Context, wait LongWait)

// Config holds the dependencies and tunables of a Protocol.
type Config struct {
	// Kernel performs the semaphore system calls.
	Kernel sysv.Kernel

	// Clock measures waits and paces restarts.
	Clock clock.Clock

	// Logger receives progress and diagnostics.
	Logger logger.Logger

	// Metrics records acquisition outcomes.
	Metrics *Collector

	// Mode is the permission mode of sets created by this process.
	Mode os.FileMode

	// RetryBudget is the number of attempts allowed when the set
	// keeps vanishing.
	RetryBudget int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// WaitTimeout bounds a blocking wait.
	WaitTimeout time.Duration

	// LongWaitThreshold is when LongWait runs during a blocking wait. Zero
	// disables the hook.
	LongWaitThreshold time.Duration

	// LongWait is the optional long wait hook.
	LongWait LongWaitFunc

	// FailOnLiveHolder fails a contended acquire immediately with
	// ErrWaitedTooLong when the holder is a live process, instead of
	// waiting.
	FailOnLiveHolder bool

	// ProcessAlive reports whether a pid names a running process.
	ProcessAlive func(pid int) bool
}

// DefaultConfig returns a Config using the host kernel, the wall clock and
// the default tunables.
func DefaultConfig(logger logger.Logger) Config {
	return Config{
		Kernel:            sysv.NewKernel(),
		Clock:             clock.WallClock,
		Logger:            logger,
		Metrics:           NewMetricsCollector(),
		Mode:              DefaultMode,
		RetryBudget:       DefaultRetryBudget,
		RetryDelay:        DefaultRetryDelay,
		WaitTimeout:       DefaultWaitTimeout,
		LongWaitThreshold: DefaultLongWaitThreshold,
		ProcessAlive:      sysv.ProcessAlive,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Kernel == nil {
		return errors.NotValidf("nil Kernel")
	}
	if c.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if c.Metrics == nil {
		return errors.NotValidf("nil Metrics")
	}
	if c.Mode.Perm() == 0 {
		return errors.NotValidf("empty Mode")
	}
	if c.RetryBudget <= 0 {
		return errors.NotValidf("RetryBudget %d", c.RetryBudget)
	}
	if c.RetryDelay <= 0 {
		return errors.NotValidf("RetryDelay %v", c.RetryDelay)
	}
	if c.WaitTimeout <= 0 {
		return errors.NotValidf("WaitTimeout %v", c.WaitTimeout)
	}
	if c.LongWaitThreshold < 0 {
		return errors.NotValidf("LongWaitThreshold %v", c.LongWaitThreshold)
	}
	if c.ProcessAlive == nil {
		return errors.NotValidf("nil ProcessAlive")
	}
	return nil
}
