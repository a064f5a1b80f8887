// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/juju/errors"

	"github.com/juju/ftoklock/internal/sysv"
)

const (
	// ErrKeyDerivation is returned when no key can be derived for the
	// resource, typically because its path does not exist.
	ErrKeyDerivation = errors.ConstError("cannot derive semaphore key")

	// ErrWouldBlock is returned by a fail-fast acquire when another
	// process holds the lock.
	ErrWouldBlock = errors.ConstError("semaphore held by another process")

	// ErrWaitedTooLong is returned instead of waiting when the holder of
	// the lock is a live process and waits are disabled.
	ErrWaitedTooLong = errors.ConstError("waited too long for semaphore held by a live process")

	// ErrWaitTimeout is returned when a blocking wait exceeds the
	// configured wait timeout.
	ErrWaitTimeout = errors.ConstError("timed out waiting for semaphore")

	// ErrTooManyRaces is returned when the semaphore set vanished on
	// every attempt of the retry budget.
	ErrTooManyRaces = errors.ConstError("too many races acquiring semaphore")

	// ErrForeignSet is returned when the set found for the key was not
	// created by ftoklock.
	ErrForeignSet = errors.ConstError("semaphore set identity marker mismatch")
)

// Operation names the step of the protocol that failed.
type Operation int

const (
	OpDeriveKey Operation = iota
	OpLocate
	OpCreate
	OpInitialize
	OpTryAcquire
	OpWait
	OpRelease
)

var operationNames = map[Operation]string{
	OpDeriveKey:  "derive-key",
	OpLocate:     "locate",
	OpCreate:     "create",
	OpInitialize: "initialize",
	OpTryAcquire: "try-acquire",
	OpWait:       "wait",
	OpRelease:    "release",
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Failure describes why an acquisition failed, in enough detail for the
// caller to report or escalate it. It matches its sentinel and its errno
// with errors.Is.
type Failure struct {
	// Op is the protocol step that failed.
	Op Operation

	// Key is the semaphore key, zero if key derivation failed.
	Key sysv.Key

	// Errno is the OS error code, zero when the failure is not the
	// result of a failed system call.
	Errno syscall.Errno

	// HolderPID is the pid of the process holding the lock, when known.
	HolderPID int

	// Err is the sentinel classifying the failure, if any.
	Err error

	cause error
}

// Error implements error.
func (f *Failure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "semaphore %s", f.Op)
	if f.Key != 0 {
		fmt.Fprintf(&b, " (key %#x)", uint32(f.Key))
	}
	b.WriteString(" failed")
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	if f.HolderPID > 0 {
		fmt.Fprintf(&b, ", held by pid %d", f.HolderPID)
	}
	switch {
	case f.cause != nil:
		fmt.Fprintf(&b, ": %v", f.cause)
	case f.Errno != 0:
		fmt.Fprintf(&b, ": %v", f.Errno)
	}
	return b.String()
}

// Unwrap exposes the sentinel, the errno and the underlying cause.
func (f *Failure) Unwrap() []error {
	var errs []error
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	if f.Errno != 0 {
		errs = append(errs, f.Errno)
	}
	if f.cause != nil {
		errs = append(errs, f.cause)
	}
	return errs
}

// newFailure records err as the failure of op, extracting its errno.
func newFailure(op Operation, key sysv.Key, err error) *Failure {
	f := &Failure{Op: op, Key: key, cause: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		f.Errno = errno
	}
	return f
}

// keyDerivationFailure records err as a failure to derive the key.
func keyDerivationFailure(err error) *Failure {
	f := newFailure(OpDeriveKey, 0, err)
	f.Err = ErrKeyDerivation
	return f
}

// raceError signals that the set vanished, or turned out not to be ours,
// during op. It restarts the protocol and consumes one unit of the retry
// budget.
type raceError struct {
	op  Operation
	err error
}

func (e *raceError) Error() string {
	return fmt.Sprintf("semaphore set vanished during %s: %v", e.op, e.err)
}

func (e *raceError) Unwrap() error {
	return e.err
}

func isRace(err error) bool {
	var race *raceError
	return errors.As(err, &race)
}
