// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"

	"github.com/juju/errors"

	"github.com/juju/ftoklock/internal/sysv"
)

// acquireOps waits for the ownership semaphore to be zero and raises it
// and, when counting, increments the reference counter, as a single
// atomic operation.
func acquireOps(counting bool, flags sysv.OpFlag) []sysv.Op {
	ops := []sysv.Op{
		{Num: ownershipSem, Delta: 0, Flags: flags},
		{Num: ownershipSem, Delta: 1, Flags: flags | sysv.Undo},
	}
	if counting {
		ops = append(ops, sysv.Op{Num: counterSem, Delta: 1, Flags: flags | sysv.Undo})
	}
	return ops
}

// releaseOps reverses acquireOps.
func releaseOps(counted bool) []sysv.Op {
	ops := []sysv.Op{{Num: ownershipSem, Delta: -1, Flags: sysv.NoWait | sysv.Undo}}
	if counted {
		ops = append(ops, sysv.Op{Num: counterSem, Delta: -1, Flags: sysv.NoWait | sysv.Undo})
	}
	return ops
}

// tryAcquire makes one non-blocking attempt to take the set.
func (p *Protocol) tryAcquire(ctx context.Context, a *attempt, id sysv.SemID) outcome {
	counting := a.counting()
	err := p.config.Kernel.Apply(id, acquireOps(counting, sysv.NoWait), 0)
	switch {
	case err == nil:
		return p.validate(ctx, a, id, counting)
	case sysv.IsWouldBlock(err):
		return outcome{kind: outcomeContended}
	case sysv.IsOverflow(err) && counting:
		return outcome{kind: outcomeOverflow}
	case sysv.IsRemoved(err):
		return vanished(OpTryAcquire, err)
	default:
		return failed(newFailure(OpTryAcquire, a.key, err))
	}
}

// tryAcquireGuarded is tryAcquire with overflow recovery: a saturated
// counter halts counting for the rest of the attempt and the try is
// repeated without the increment. This is not a restart and costs nothing
// from the retry budget.
func (p *Protocol) tryAcquireGuarded(ctx context.Context, a *attempt, id sysv.SemID) outcome {
	o := p.tryAcquire(ctx, a, id)
	if o.kind != outcomeOverflow {
		return o
	}
	p.haltCounter(ctx, a, id)
	return p.tryAcquire(ctx, a, id)
}

func (p *Protocol) haltCounter(ctx context.Context, a *attempt, id sysv.SemID) {
	a.counterHalted = true
	p.config.Metrics.overflows.Inc()
	p.config.Logger.Warningf(ctx, "reference counter of semaphore set %d (key %#x) is saturated, no longer counting", id, uint32(a.key))
}

// validate checks the identity marker of a set that was just taken. An
// unmarked set lost its creator before the marker was written; holding it
// makes it safe to finish that job. A set marked by someone else is given
// back and treated as vanished, since the key may be reused once the
// foreign set goes away.
func (p *Protocol) validate(ctx context.Context, a *attempt, id sysv.SemID, counted bool) outcome {
	marker, err := p.config.Kernel.Value(id, markerSem)
	if err == nil && marker == 0 {
		p.config.Logger.Debugf(ctx, "semaphore set %d for key %#x was never marked, marking it", id, uint32(a.key))
		err = p.config.Kernel.SetValue(id, markerSem, IdentityMarker)
		if err == nil {
			marker = IdentityMarker
		}
	}
	if err == nil && marker == IdentityMarker {
		return outcome{kind: outcomeAcquired, counted: counted}
	}
	if err != nil && sysv.IsRemoved(err) {
		return vanished(OpTryAcquire, err)
	}

	if undoErr := p.config.Kernel.Apply(id, releaseOps(counted), 0); undoErr != nil && !sysv.IsRemoved(undoErr) {
		p.config.Logger.Errorf(ctx, "cannot give back semaphore set %d: %v", id, undoErr)
	}
	if err != nil {
		return failed(newFailure(OpTryAcquire, a.key, err))
	}
	p.config.Logger.Warningf(ctx, "semaphore set %d for key %#x has marker %d, not %d", id, uint32(a.key), marker, IdentityMarker)
	return vanished(OpTryAcquire, errors.Annotatef(ErrForeignSet, "set %d has marker %d", id, marker))
}
