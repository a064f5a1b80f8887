// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package sysv exposes the System V semaphore calls needed to coordinate
// unrelated processes through a kernel-persisted semaphore set.
//
// Every call that can be interrupted by a signal is restarted
// transparently, except a timed wait which reports the interruption so that
// the caller can recompute its deadline.
package sysv

import (
	"os"
	"syscall"
	"time"

	"github.com/juju/errors"
)

// Key identifies a semaphore set in the kernel IPC namespace.
type Key int32

// SemID is the kernel identifier of a semaphore set returned by semget.
type SemID int

// OpFlag modifies a single semaphore operation.
type OpFlag int16

const (
	// NoWait makes an operation that would block fail with EAGAIN.
	NoWait OpFlag = 0x800

	// Undo asks the kernel to reverse the operation when the process
	// exits.
	Undo OpFlag = 0x1000
)

// MaxValue is the largest value a semaphore can hold (SEMVMX). Raising a
// semaphore past it fails with ERANGE.
const MaxValue = 32767

// Op is a single operation within an atomic semop call.
type Op struct {
	// Num is the index of the semaphore within the set.
	Num uint16

	// Delta is added to the semaphore. A negative delta blocks while the
	// value would drop below zero; zero waits for the value to be zero.
	Delta int16

	// Flags modify the operation.
	Flags OpFlag
}

// Kernel is the set of System V semaphore operations used by ftoklock.
// Errors are returned as syscall.Errno values so callers can classify them
// with the predicates in this package.
type Kernel interface {
	// Open returns the identifier of an existing set, failing with ENOENT
	// if there is none for key.
	Open(key Key, nsems int) (SemID, error)

	// Create exclusively creates a set, failing with EEXIST if one already
	// exists for key. All semaphores of a new set are zero.
	Create(key Key, nsems int, mode os.FileMode) (SemID, error)

	// Apply performs ops atomically. A zero timeout waits without bound
	// (unless every op carries NoWait); a positive timeout bounds the wait
	// and reports expiry as EAGAIN.
	Apply(id SemID, ops []Op, timeout time.Duration) error

	// SetValue sets the value of semaphore num, clearing every process's
	// undo adjustment for it.
	SetValue(id SemID, num, value int) error

	// Value returns the value of semaphore num.
	Value(id SemID, num int) (int, error)

	// LastPID returns the pid of the last process to operate on
	// semaphore num.
	LastPID(id SemID, num int) (int, error)

	// Waiters returns the number of processes waiting for semaphore num to
	// become zero.
	Waiters(id SemID, num int) (int, error)

	// Remove destroys the set, waking every waiter with EIDRM.
	Remove(id SemID) error
}

// IsNotExist reports whether err means no set exists for the key.
func IsNotExist(err error) bool {
	return errors.Is(err, syscall.ENOENT)
}

// IsExist reports whether err means a set already exists for the key.
func IsExist(err error) bool {
	return errors.Is(err, syscall.EEXIST)
}

// IsRemoved reports whether err means the set was removed, either while
// waiting (EIDRM) or before the call (EINVAL).
func IsRemoved(err error) bool {
	return errors.Is(err, syscall.EIDRM) || errors.Is(err, syscall.EINVAL)
}

// IsWouldBlock reports whether err means a NoWait operation could not
// proceed, or a timed wait expired.
func IsWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN)
}

// IsOverflow reports whether err means an operation would raise a
// semaphore past MaxValue.
func IsOverflow(err error) bool {
	return errors.Is(err, syscall.ERANGE)
}

// IsInterrupted reports whether err means a timed wait was interrupted by a
// signal.
func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}
