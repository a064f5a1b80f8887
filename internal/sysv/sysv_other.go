// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

//go:build !(linux && (amd64 || arm64 || riscv64))

package sysv

import (
	"os"
	"time"

	"github.com/juju/errors"
)

type kernel struct{}

// NewKernel returns a Kernel whose every call fails: System V semaphores
// are only wired up on 64-bit Linux.
func NewKernel() Kernel {
	return kernel{}
}

func (kernel) Open(Key, int) (SemID, error) {
	return -1, errors.NotSupportedf("system v semaphores")
}

func (kernel) Create(Key, int, os.FileMode) (SemID, error) {
	return -1, errors.NotSupportedf("system v semaphores")
}

func (kernel) Apply(SemID, []Op, time.Duration) error {
	return errors.NotSupportedf("system v semaphores")
}

func (kernel) SetValue(SemID, int, int) error {
	return errors.NotSupportedf("system v semaphores")
}

func (kernel) Value(SemID, int) (int, error) {
	return -1, errors.NotSupportedf("system v semaphores")
}

func (kernel) LastPID(SemID, int) (int, error) {
	return -1, errors.NotSupportedf("system v semaphores")
}

func (kernel) Waiters(SemID, int) (int, error) {
	return -1, errors.NotSupportedf("system v semaphores")
}

func (kernel) Remove(SemID) error {
	return errors.NotSupportedf("system v semaphores")
}

// ProcessAlive always reports false where liveness cannot be checked.
func ProcessAlive(int) bool {
	return false
}
