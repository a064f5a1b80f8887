// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"
	"syscall"
	"time"

	"github.com/juju/ftoklock/internal/sysv"
)

// awaitRelease handles a contended set: it fails fast, fails because the
// holder is alive, or blocks in the kernel until the holder lets go.
func (p *Protocol) awaitRelease(ctx context.Context, a *attempt, id sysv.SemID) outcome {
	if a.args.FailFast {
		return outcome{kind: outcomeContended, holderPID: p.holderPID(id)}
	}

	if p.config.FailOnLiveHolder {
		pid, err := p.config.Kernel.LastPID(id, ownershipSem)
		switch {
		case err != nil && sysv.IsRemoved(err):
			return vanished(OpWait, err)
		case err != nil:
			return failed(newFailure(OpWait, a.key, err))
		case pid > 0 && p.config.ProcessAlive(pid):
			return failed(&Failure{Op: OpWait, Key: a.key, HolderPID: pid, Err: ErrWaitedTooLong})
		}
		p.config.Logger.Debugf(ctx, "holder %d of key %#x is gone, waiting for the kernel to release it", pid, uint32(a.key))
	}

	return p.blockingWait(ctx, a, id)
}

// blockingWait waits in the kernel for the ownership semaphore, in slices
// so that the long wait hook can run once and the overall wait stays
// bounded. Signals interrupt a slice but never the wait.
func (p *Protocol) blockingWait(ctx context.Context, a *attempt, id sysv.SemID) outcome {
	clk := p.config.Clock
	start := clk.Now()
	deadline := start.Add(p.config.WaitTimeout)
	threshold := p.config.LongWaitThreshold
	reported := threshold == 0

	for {
		now := clk.Now()
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return p.waitExpired(ctx, a, id, now.Sub(start))
		}
		slice := remaining
		if !reported {
			untilThreshold := start.Add(threshold).Sub(now)
			if untilThreshold <= 0 {
				reported = true
				p.reportLongWait(ctx, a, id, now.Sub(start))
				continue
			}
			if untilThreshold < slice {
				slice = untilThreshold
			}
		}

		counting := a.counting()
		err := p.config.Kernel.Apply(id, acquireOps(counting, 0), slice)
		switch {
		case err == nil:
			p.config.Metrics.waitDuration.Observe(clk.Now().Sub(start).Seconds())
			return p.validate(ctx, a, id, counting)
		case sysv.IsWouldBlock(err), sysv.IsInterrupted(err):
			// The slice expired or a signal arrived; go round again.
		case sysv.IsOverflow(err) && counting:
			p.haltCounter(ctx, a, id)
		case sysv.IsRemoved(err):
			return vanished(OpWait, err)
		default:
			return failed(newFailure(OpWait, a.key, err))
		}
	}
}

func (p *Protocol) reportLongWait(ctx context.Context, a *attempt, id sysv.SemID, waited time.Duration) {
	p.config.Metrics.longWaits.Inc()
	pid := p.holderPID(id)
	p.config.Logger.Warningf(ctx, "waited %v for semaphore set %d (key %#x) held by pid %d", waited, id, uint32(a.key), pid)
	if p.config.LongWait != nil {
		p.config.LongWait(ctx, LongWait{
			Key:       a.key,
			SemID:     id,
			HolderPID: pid,
			Waited:    waited,
		})
	}
}

// waitExpired ends a wait that reached the timeout, with a bypassed
// success if the caller allowed it.
func (p *Protocol) waitExpired(ctx context.Context, a *attempt, id sysv.SemID, waited time.Duration) outcome {
	p.config.Metrics.waitDuration.Observe(waited.Seconds())
	pid, err := p.config.Kernel.LastPID(id, ownershipSem)
	if err != nil && sysv.IsRemoved(err) {
		return vanished(OpWait, err)
	} else if err != nil || pid < 0 {
		pid = 0
	}
	if a.args.AllowBypass {
		p.config.Logger.Warningf(ctx, "bypassing semaphore set %d (key %#x) held by pid %d after %v", id, uint32(a.key), pid, waited)
		return outcome{kind: outcomeAcquired, bypassed: true}
	}
	return failed(&Failure{
		Op:        OpWait,
		Key:       a.key,
		Errno:     syscall.EAGAIN,
		HolderPID: pid,
		Err:       ErrWaitTimeout,
	})
}

// holderPID returns the last process to operate on the ownership
// semaphore, or 0 when that cannot be read.
func (p *Protocol) holderPID(id sysv.SemID) int {
	pid, err := p.config.Kernel.LastPID(id, ownershipSem)
	if err != nil || pid < 0 {
		return 0
	}
	return pid
}
