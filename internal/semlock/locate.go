// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"

	"github.com/juju/errors"

	"github.com/juju/ftoklock/internal/sysv"
)

// locateOrCreate returns the set for key, creating it if there is none.
// Losing the race to create it just means looking again, and is not a
// restart of the protocol.
func (p *Protocol) locateOrCreate(ctx context.Context, key sysv.Key) (sysv.SemID, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, false, errors.Trace(err)
		}

		id, err := p.config.Kernel.Open(key, semsPerSet)
		if err == nil {
			return id, false, nil
		} else if !sysv.IsNotExist(err) {
			return -1, false, newFailure(OpLocate, key, err)
		}

		id, err = p.config.Kernel.Create(key, semsPerSet, p.config.Mode)
		if err == nil {
			p.config.Logger.Debugf(ctx, "created semaphore set %d for key %#x", id, uint32(key))
			return id, true, nil
		} else if !sysv.IsExist(err) {
			return -1, false, newFailure(OpCreate, key, err)
		}
		p.config.Logger.Tracef(ctx, "lost the race to create semaphore set for key %#x", uint32(key))
	}
}

// stampIdentity writes the identity marker of a new set. Only the marker
// is touched, so a peer that took the set first keeps it.
func (p *Protocol) stampIdentity(ctx context.Context, key sysv.Key, id sysv.SemID) error {
	err := p.config.Kernel.SetValue(id, markerSem, IdentityMarker)
	if err == nil {
		return nil
	}
	if sysv.IsRemoved(err) {
		p.config.Logger.Debugf(ctx, "semaphore set %d removed before it was initialised", id)
		return &raceError{op: OpInitialize, err: err}
	}
	return newFailure(OpInitialize, key, err)
}
