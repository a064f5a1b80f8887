// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package semlock implements a crash tolerant named mutex shared by
// unrelated processes that open the same file.
//
// The mutex is a System V semaphore set of three semaphores, keyed by the
// identity of the file:
//
//   - 0 is the ownership semaphore: 0 while free, 1 while held. Acquiring
//     waits for it to be zero and raises it with SEM_UNDO, so the kernel
//     releases the lock of a process that dies holding it. A new set is
//     free from the moment it exists.
//   - 1 counts the processes attached to the file. It is incremented in the
//     same atomic operation as the acquire, when the caller asks for it.
//   - 2 holds IdentityMarker, identifying sets created by this package.
//     The creator writes it; if the creator dies first, the next process
//     to take the set writes it instead.
//
// No process owns the set. Whoever needs it first creates it, and it can be
// removed by any process that finds the reference count at zero. An
// acquisition therefore has to cope with losing the race to create the set,
// with the set being removed between finding and locking it, and with the
// reference count saturating. Restarts caused by the set vanishing are
// bounded by a retry budget; overflow is recovered in place by no longer
// counting.
package semlock
