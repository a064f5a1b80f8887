// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

//go:build linux && (amd64 || arm64 || riscv64)

package sysv

import (
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// semctl commands, from <linux/sem.h>.
const (
	cmdGetPID  = 11
	cmdGetVal  = 12
	cmdGetZCnt = 15
	cmdSetVal  = 16
)

// sembuf mirrors struct sembuf.
type sembuf struct {
	num uint16
	op  int16
	flg int16
}

type kernel struct{}

// NewKernel returns the Kernel backed by the running Linux kernel.
func NewKernel() Kernel {
	return kernel{}
}

func (kernel) Open(key Key, nsems int) (SemID, error) {
	return semget(key, nsems, 0)
}

func (kernel) Create(key Key, nsems int, mode os.FileMode) (SemID, error) {
	return semget(key, nsems, unix.IPC_CREAT|unix.IPC_EXCL|int(mode.Perm()))
}

func (kernel) Apply(id SemID, ops []Op, timeout time.Duration) error {
	if len(ops) == 0 {
		return nil
	}
	bufs := make([]sembuf, len(ops))
	for i, op := range ops {
		bufs[i] = sembuf{num: op.Num, op: op.Delta, flg: int16(op.Flags)}
	}
	if timeout <= 0 {
		return restart(func() error {
			_, _, errno := unix.Syscall(unix.SYS_SEMOP, uintptr(id),
				uintptr(unsafe.Pointer(&bufs[0])), uintptr(len(bufs)))
			return errnoErr(errno)
		})
	}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, errno := unix.Syscall6(unix.SYS_SEMTIMEDOP, uintptr(id),
		uintptr(unsafe.Pointer(&bufs[0])), uintptr(len(bufs)),
		uintptr(unsafe.Pointer(&ts)), 0, 0)
	return errnoErr(errno)
}

func (kernel) SetValue(id SemID, num, value int) error {
	if value < 0 || value > MaxValue {
		return unix.ERANGE
	}
	_, err := semctl(id, num, cmdSetVal, uintptr(value))
	return err
}

func (kernel) Value(id SemID, num int) (int, error) {
	return semctl(id, num, cmdGetVal, 0)
}

func (kernel) LastPID(id SemID, num int) (int, error) {
	return semctl(id, num, cmdGetPID, 0)
}

func (kernel) Waiters(id SemID, num int) (int, error) {
	return semctl(id, num, cmdGetZCnt, 0)
}

func (kernel) Remove(id SemID) error {
	_, err := semctl(id, 0, unix.IPC_RMID, 0)
	return err
}

func semget(key Key, nsems, flags int) (SemID, error) {
	var id SemID
	err := restart(func() error {
		r, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(nsems), uintptr(flags))
		id = SemID(r)
		return errnoErr(errno)
	})
	if err != nil {
		return -1, err
	}
	return id, nil
}

func semctl(id SemID, num, cmd int, arg uintptr) (int, error) {
	var result int
	err := restart(func() error {
		r, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(num), uintptr(cmd), arg, 0, 0)
		result = int(r)
		return errnoErr(errno)
	})
	if err != nil {
		return -1, err
	}
	return result, nil
}

// restart retries f for as long as it is interrupted by a signal.
func restart(f func() error) error {
	for {
		err := f()
		if err != unix.EINTR {
			return err
		}
	}
}

func errnoErr(errno unix.Errno) error {
	if errno == 0 {
		return nil
	}
	return errno
}

// ProcessAlive reports whether a process with the given pid exists. A
// process owned by another user is still alive even though it cannot be
// signalled.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
