// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"
	"syscall"

	"github.com/juju/errors"
	"github.com/juju/retry"

	"github.com/juju/ftoklock/internal/ftok"
	"github.com/juju/ftoklock/internal/sysv"
)

const (
	ownershipSem = 0
	counterSem   = 1
	markerSem    = 2
	semsPerSet   = 3

	// IdentityMarker is the value of the marker semaphore of every set
	// created by this package.
	IdentityMarker = 43
)

// AcquireArgs holds the caller's choices for a single acquisition.
type AcquireArgs struct {
	// Increment asks for the reference counter to be incremented
	// atomically with the acquire.
	Increment bool

	// FailFast returns ErrWouldBlock instead of waiting when the lock is
	// held.
	FailFast bool

	// AllowBypass turns a wait timeout into a bypassed success, for
	// callers that can proceed without exclusive access. A bypassed Lock
	// holds nothing.
	AllowBypass bool
}

// Protocol acquires semaphore based locks. It is safe for concurrent use.
type Protocol struct {
	config Config
}

// NewProtocol returns a Protocol for the given configuration.
func NewProtocol(config Config) (*Protocol, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Protocol{config: config}, nil
}

// attempt is the state of one pass through the protocol. A fresh attempt
// is used for every restart, so a restart always counts again.
type attempt struct {
	key           sysv.Key
	args          AcquireArgs
	counterHalted bool
}

func (a *attempt) counting() bool {
	return a.args.Increment && !a.counterHalted
}

type outcomeKind int

const (
	outcomeAcquired outcomeKind = iota
	outcomeContended
	outcomeVanished
	outcomeOverflow
	outcomeFailed
)

// outcome is the tagged result of a try or wait step.
type outcome struct {
	kind      outcomeKind
	counted   bool
	bypassed  bool
	holderPID int
	err       error
}

func vanished(op Operation, err error) outcome {
	return outcome{kind: outcomeVanished, err: &raceError{op: op, err: err}}
}

func failed(err error) outcome {
	return outcome{kind: outcomeFailed, err: err}
}

// Acquire takes the lock for the identity. On success the returned Lock
// must be released, even when it was bypassed.
//
// The set vanishing under the protocol restarts it, at most
// Config.RetryBudget times in total before ErrTooManyRaces is returned.
// Every other failure is returned as a *Failure.
func (p *Protocol) Acquire(ctx context.Context, identity ftok.Identity, args AcquireArgs) (*Lock, error) {
	key, err := ftok.DeriveKey(identity)
	if err != nil {
		p.config.Metrics.acquisitions.WithLabelValues(outcomeLabelFailed).Inc()
		return nil, keyDerivationFailure(err)
	}

	var (
		lock     *Lock
		attempts int
		lastRace error
	)
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			attempts++
			l, err := p.acquireOnce(ctx, &attempt{key: key, args: args})
			if err != nil {
				if isRace(err) {
					lastRace = err
				}
				return err
			}
			lock = l
			return nil
		},
		IsFatalError: func(err error) bool {
			return !isRace(err)
		},
		NotifyFunc: func(err error, attempt int) {
			if attempt >= p.config.RetryBudget {
				return
			}
			p.config.Metrics.races.Inc()
			p.config.Logger.Debugf(ctx, "restarting acquisition of key %#x (attempt %d): %v", uint32(key), attempt, err)
		},
		Attempts: p.config.RetryBudget,
		Delay:    p.config.RetryDelay,
		Clock:    p.config.Clock,
		Stop:     ctx.Done(),
	})
	switch {
	case err == nil:
	case retry.IsAttemptsExceeded(err):
		p.config.Metrics.acquisitions.WithLabelValues(outcomeLabelRaces).Inc()
		p.config.Logger.Warningf(ctx, "giving up on key %#x after %d attempts", uint32(key), attempts)
		var race *raceError
		errors.As(lastRace, &race)
		f := newFailure(race.op, key, race.err)
		f.Err = ErrTooManyRaces
		return nil, f
	case retry.IsRetryStopped(err):
		p.config.Metrics.acquisitions.WithLabelValues(outcomeLabelFailed).Inc()
		return nil, errors.Annotatef(ctx.Err(), "acquiring key %#x", uint32(key))
	default:
		label := outcomeLabelFailed
		if errors.Is(err, ErrWouldBlock) {
			label = outcomeLabelWouldBlock
		}
		p.config.Metrics.acquisitions.WithLabelValues(label).Inc()
		return nil, errors.Trace(err)
	}

	lock.races = attempts - 1
	if lock.bypassed {
		p.config.Metrics.acquisitions.WithLabelValues(outcomeLabelBypassed).Inc()
	} else {
		p.config.Metrics.acquisitions.WithLabelValues(outcomeLabelAcquired).Inc()
	}
	return lock, nil
}

// acquireOnce runs one pass: locate or create the set, stamp it if new,
// try to take it and wait if it is held.
func (p *Protocol) acquireOnce(ctx context.Context, a *attempt) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	id, created, err := p.locateOrCreate(ctx, a.key)
	if err != nil {
		return nil, err
	}
	if created {
		if err := p.stampIdentity(ctx, a.key, id); err != nil {
			return nil, err
		}
	}

	o := p.tryAcquireGuarded(ctx, a, id)
	if o.kind == outcomeContended {
		o = p.awaitRelease(ctx, a, id)
	}

	switch o.kind {
	case outcomeAcquired:
		return p.newLock(a, id, o), nil
	case outcomeContended:
		return nil, &Failure{
			Op:        OpTryAcquire,
			Key:       a.key,
			Errno:     syscall.EAGAIN,
			HolderPID: o.holderPID,
			Err:       ErrWouldBlock,
		}
	default:
		return nil, o.err
	}
}
