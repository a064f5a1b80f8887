// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"

	"github.com/juju/errors"

	"github.com/juju/ftoklock/internal/ftok"
	"github.com/juju/ftoklock/internal/sysv"
)

// Status is a snapshot of the semaphore set for a resource.
type Status struct {
	Key   sysv.Key
	SemID sysv.SemID

	// Ownership is 0 while the lock is free and 1 while it is held.
	Ownership int

	// Counter is the number of attached processes.
	Counter int

	// Marker is the identity marker; Valid reports whether it is ours.
	Marker int
	Valid  bool

	// HolderPID is the last process to operate on the ownership
	// semaphore: the holder while the lock is held.
	HolderPID int

	// Waiters is the number of processes blocked acquiring the lock.
	Waiters int
}

// Free reports whether the lock was free when the snapshot was taken.
func (s Status) Free() bool {
	return s.Ownership == 0
}

// Status reports the state of the semaphore set for the identity without
// creating or changing it. It returns an error satisfying errors.NotFound
// when there is no set.
func (p *Protocol) Status(ctx context.Context, identity ftok.Identity) (Status, error) {
	key, id, err := p.open(identity)
	if err != nil {
		return Status{}, errors.Trace(err)
	}

	kernel := p.config.Kernel
	status := Status{Key: key, SemID: id}
	for _, read := range []struct {
		into *int
		get  func(sysv.SemID, int) (int, error)
		num  int
	}{
		{&status.Ownership, kernel.Value, ownershipSem},
		{&status.Counter, kernel.Value, counterSem},
		{&status.Marker, kernel.Value, markerSem},
		{&status.HolderPID, kernel.LastPID, ownershipSem},
		{&status.Waiters, kernel.Waiters, ownershipSem},
	} {
		v, err := read.get(id, read.num)
		if sysv.IsRemoved(err) {
			return Status{}, errors.NotFoundf("semaphore set for %q", identity.Path)
		} else if err != nil {
			return Status{}, newFailure(OpLocate, key, err)
		}
		*read.into = v
	}
	status.Valid = status.Marker == IdentityMarker
	p.config.Logger.Tracef(ctx, "status of key %#x: %+v", uint32(key), status)
	return status, nil
}

// Remove destroys the semaphore set for the identity, waking any waiters.
func (p *Protocol) Remove(ctx context.Context, identity ftok.Identity) error {
	key, id, err := p.open(identity)
	if err != nil {
		return errors.Trace(err)
	}
	if err := p.config.Kernel.Remove(id); sysv.IsRemoved(err) {
		return errors.NotFoundf("semaphore set for %q", identity.Path)
	} else if err != nil {
		return newFailure(OpRelease, key, err)
	}
	p.config.Logger.Infof(ctx, "removed semaphore set %d (key %#x) for %q", id, uint32(key), identity.Path)
	return nil
}

func (p *Protocol) open(identity ftok.Identity) (sysv.Key, sysv.SemID, error) {
	key, err := ftok.DeriveKey(identity)
	if err != nil {
		return 0, -1, keyDerivationFailure(err)
	}
	id, err := p.config.Kernel.Open(key, semsPerSet)
	if sysv.IsNotExist(err) {
		return key, -1, errors.NotFoundf("semaphore set for %q", identity.Path)
	} else if err != nil {
		return key, -1, newFailure(OpLocate, key, err)
	}
	return key, id, nil
}
