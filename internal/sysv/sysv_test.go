// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package sysv

import (
	"syscall"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
)

type predicateSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&predicateSuite{})

func (s *predicateSuite) TestPredicates(c *gc.C) {
	c.Check(IsNotExist(syscall.ENOENT), jc.IsTrue)
	c.Check(IsExist(syscall.EEXIST), jc.IsTrue)
	c.Check(IsRemoved(syscall.EIDRM), jc.IsTrue)
	c.Check(IsRemoved(syscall.EINVAL), jc.IsTrue)
	c.Check(IsWouldBlock(syscall.EAGAIN), jc.IsTrue)
	c.Check(IsOverflow(syscall.ERANGE), jc.IsTrue)
	c.Check(IsInterrupted(syscall.EINTR), jc.IsTrue)

	c.Check(IsRemoved(syscall.EAGAIN), jc.IsFalse)
	c.Check(IsNotExist(syscall.EACCES), jc.IsFalse)
	c.Check(IsOverflow(nil), jc.IsFalse)
}

func (s *predicateSuite) TestPredicatesSeeThroughAnnotations(c *gc.C) {
	err := errors.Annotate(syscall.EIDRM, "semop")
	c.Check(IsRemoved(err), jc.IsTrue)
	c.Check(IsWouldBlock(errors.Trace(syscall.EAGAIN)), jc.IsTrue)
}
