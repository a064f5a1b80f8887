// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"
	"sync"

	"github.com/juju/errors"

	"github.com/juju/ftoklock/internal/sysv"
)

// ReleaseArgs holds the caller's choices when releasing a Lock.
type ReleaseArgs struct {
	// Decrement detaches from the resource by decrementing the reference
	// counter. It is ignored unless the acquire incremented it.
	Decrement bool

	// RemoveIfUnused removes the set when the decrement leaves the
	// counter at zero and no process is waiting for it.
	RemoveIfUnused bool
}

// Lock is a held semaphore lock, or a bypassed one that holds nothing.
// Its methods are safe for concurrent use.
type Lock struct {
	protocol *Protocol

	key           sysv.Key
	id            sysv.SemID
	counted       bool
	counterHalted bool
	bypassed      bool
	races         int

	mu       sync.Mutex
	released bool
}

func (p *Protocol) newLock(a *attempt, id sysv.SemID, o outcome) *Lock {
	return &Lock{
		protocol:      p,
		key:           a.key,
		id:            id,
		counted:       o.counted,
		counterHalted: a.counterHalted,
		bypassed:      o.bypassed,
	}
}

// Key returns the semaphore key of the lock.
func (l *Lock) Key() sysv.Key {
	return l.key
}

// SemID returns the kernel identifier of the semaphore set.
func (l *Lock) SemID() sysv.SemID {
	return l.id
}

// Counted reports whether the acquire incremented the reference counter,
// and so whether a decrementing release will decrement it.
func (l *Lock) Counted() bool {
	return l.counted
}

// CounterHalted reports whether the reference counter was saturated, so
// the increment that was asked for did not happen.
func (l *Lock) CounterHalted() bool {
	return l.counterHalted
}

// Bypassed reports whether the lock was granted without taking ownership.
func (l *Lock) Bypassed() bool {
	return l.bypassed
}

// Races returns the number of times the acquisition restarted because the
// set vanished.
func (l *Lock) Races() int {
	return l.races
}

// Held reports whether the lock owns the semaphore set.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.released && !l.bypassed
}

// Release gives up the lock. Releasing more than once is a no-op, so a
// deferred Release can back up an explicit one.
func (l *Lock) Release(ctx context.Context, args ReleaseArgs) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true

	logger := l.protocol.config.Logger
	if l.bypassed {
		logger.Debugf(ctx, "released bypassed lock for key %#x", uint32(l.key))
		return nil
	}

	decrement := args.Decrement && l.counted
	if decrement && args.RemoveIfUnused {
		removed, err := l.rundown(ctx)
		if err != nil || removed {
			return errors.Trace(err)
		}
		return l.apply(ctx, releaseOps(false))
	}
	return l.apply(ctx, releaseOps(decrement))
}

// rundown decrements the counter while still holding the set and removes
// the set if nobody else is attached or waiting.
func (l *Lock) rundown(ctx context.Context) (bool, error) {
	kernel := l.protocol.config.Kernel
	decrement := []sysv.Op{{Num: counterSem, Delta: -1, Flags: sysv.NoWait | sysv.Undo}}
	if err := kernel.Apply(l.id, decrement, 0); err != nil {
		if sysv.IsRemoved(err) {
			return true, nil
		}
		return false, newFailure(OpRelease, l.key, err)
	}

	count, err := kernel.Value(l.id, counterSem)
	if err != nil {
		return sysv.IsRemoved(err), l.releaseError(err)
	}
	waiters, err := kernel.Waiters(l.id, ownershipSem)
	if err != nil {
		return sysv.IsRemoved(err), l.releaseError(err)
	}
	if count != 0 || waiters != 0 {
		return false, nil
	}

	if err := kernel.Remove(l.id); err != nil {
		return sysv.IsRemoved(err), l.releaseError(err)
	}
	l.protocol.config.Logger.Debugf(ctx, "removed unused semaphore set %d (key %#x)", l.id, uint32(l.key))
	return true, nil
}

func (l *Lock) apply(ctx context.Context, ops []sysv.Op) error {
	err := l.protocol.config.Kernel.Apply(l.id, ops, 0)
	if err != nil && sysv.IsRemoved(err) {
		l.protocol.config.Logger.Warningf(ctx, "semaphore set %d (key %#x) was removed while held", l.id, uint32(l.key))
		return nil
	}
	return l.releaseError(err)
}

func (l *Lock) releaseError(err error) error {
	if err == nil || sysv.IsRemoved(err) {
		return nil
	}
	return newFailure(OpRelease, l.key, err)
}
