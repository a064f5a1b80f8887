// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	loggertesting "github.com/juju/ftoklock/internal/logger/testing"
)

type diagnosticsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&diagnosticsSuite{})

func (s *diagnosticsSuite) TestGoroutineDump(c *gc.C) {
	dir := c.MkDir()
	dump := GoroutineDump(dir, loggertesting.WrapCheckLog(c))

	wait := LongWait{Key: 0x1234, SemID: 7, HolderPID: 42, Waited: 30 * time.Second}
	dump(context.Background(), wait)
	dump(context.Background(), wait)

	content, err := os.ReadFile(filepath.Join(dir, DebugFileName))
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(content), jc.Contains, "key: 0x1234\nsemid: 7\nholder-pid: 42\nwaited: 30s\n")
	c.Check(string(content), jc.Contains, "goroutine profile:")
	c.Check(string(content), gc.Matches, `(?s)semaphore long wait .*semaphore long wait .*`)
}

func (s *diagnosticsSuite) TestGoroutineDumpMissingDir(c *gc.C) {
	dir := filepath.Join(c.MkDir(), "missing")
	dump := GoroutineDump(dir, loggertesting.WrapCheckLog(c))

	dump(context.Background(), LongWait{Key: 0x1234})

	_, err := os.Stat(dir)
	c.Check(os.IsNotExist(err), jc.IsTrue)
}
