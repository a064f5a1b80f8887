// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"syscall"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type errorsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&errorsSuite{})

func (s *errorsSuite) TestFailureMessage(c *gc.C) {
	tests := []struct {
		failure  *Failure
		expected string
	}{{
		failure:  &Failure{Op: OpDeriveKey, Err: ErrKeyDerivation, cause: errors.New("boom")},
		expected: "semaphore derive-key failed: cannot derive semaphore key: boom",
	}, {
		failure:  newFailure(OpLocate, 0x1234, syscall.EACCES),
		expected: "semaphore locate (key 0x1234) failed: permission denied",
	}, {
		failure: &Failure{
			Op:        OpWait,
			Key:       0x1234,
			Errno:     syscall.EAGAIN,
			HolderPID: 42,
			Err:       ErrWaitTimeout,
		},
		expected: "semaphore wait (key 0x1234) failed: timed out waiting for semaphore, held by pid 42: resource temporarily unavailable",
	}}
	for i, test := range tests {
		c.Logf("test %d", i)
		c.Check(test.failure.Error(), gc.Equals, test.expected)
	}
}

func (s *errorsSuite) TestFailureMatchesSentinelAndErrno(c *gc.C) {
	f := newFailure(OpWait, 0x1234, errors.Annotate(syscall.EIDRM, "waiting"))
	f.Err = ErrTooManyRaces

	var err error = errors.Trace(f)
	c.Check(err, jc.ErrorIs, ErrTooManyRaces)
	c.Check(err, jc.ErrorIs, syscall.EIDRM)
	c.Check(f.Errno, gc.Equals, syscall.EIDRM)
	c.Check(errors.Is(err, ErrWaitTimeout), jc.IsFalse)
}

func (s *errorsSuite) TestRaceClassification(c *gc.C) {
	race := &raceError{op: OpInitialize, err: syscall.EIDRM}
	c.Check(isRace(race), jc.IsTrue)
	c.Check(isRace(errors.Trace(race)), jc.IsTrue)
	c.Check(isRace(syscall.EIDRM), jc.IsFalse)
	c.Check(race, gc.ErrorMatches, "semaphore set vanished during initialize: identifier removed")
}

func (s *errorsSuite) TestOperationString(c *gc.C) {
	c.Check(OpTryAcquire.String(), gc.Equals, "try-acquire")
	c.Check(Operation(99).String(), gc.Equals, "operation(99)")
}
