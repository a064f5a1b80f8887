// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/ftoklock/cmd"
	"github.com/juju/ftoklock/internal/ftok"
)

type commandsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&commandsSuite{})

func (s *commandsSuite) TestKey(c *gc.C) {
	ctx, stdout, stderr := newContext(c)
	path := writeFile(c, ctx, "data.dat", "")

	code := cmd.Main(NewSuperCommand(), ctx, []string{"key", "--project-id", "9", "data.dat"})
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))

	key, err := ftok.DeriveKey(ftok.Identity{Path: path, ProjectID: 9})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stdout.String(), gc.Equals, fmt.Sprintf("%#08x\n", uint32(key)))
	c.Check(stdout.String(), gc.Matches, "0x09[0-9a-f]{6}\n")
}

func (s *commandsSuite) TestKeyYaml(c *gc.C) {
	ctx, stdout, stderr := newContext(c)
	path := writeFile(c, ctx, "data.dat", "")

	code := cmd.Main(NewSuperCommand(), ctx, []string{"key", "--format", "yaml", path})
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))

	key, err := ftok.DeriveKey(ftok.Identity{Path: path, ProjectID: defaultProjectID})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(stdout.String(), gc.Equals, fmt.Sprintf("path: %s\nproject-id: 1\nkey: \"%#08x\"\n", path, uint32(key)))
}

func (s *commandsSuite) TestKeyProjectIDFromConfig(c *gc.C) {
	ctx, stdout, stderr := newContext(c)
	writeFile(c, ctx, "data.dat", "")
	writeFile(c, ctx, "config.yaml", "project-id: 200\n")

	code := cmd.Main(NewSuperCommand(), ctx, []string{"key", "--config", "config.yaml", "data.dat"})
	c.Assert(code, gc.Equals, 0, gc.Commentf("stderr: %s", stderr))
	c.Check(stdout.String(), gc.Matches, "0xc8[0-9a-f]{6}\n")
}

func (s *commandsSuite) TestKeyMissingFile(c *gc.C) {
	ctx, _, stderr := newContext(c)

	code := cmd.Main(NewSuperCommand(), ctx, []string{"key", "missing.dat"})
	c.Check(code, gc.Equals, 1)
	c.Check(stderr.String(), gc.Matches, `ERROR deriving key for ".*missing.dat": no such file or directory\n`)
}

func (s *commandsSuite) TestUnknownCommand(c *gc.C) {
	ctx, _, stderr := newContext(c)

	code := cmd.Main(NewSuperCommand(), ctx, []string{"lock", "data.dat"})
	c.Check(code, gc.Equals, 2)
	c.Check(stderr.String(), gc.Equals, "ERROR unrecognized command: ftoklock lock\n")
}

func (s *commandsSuite) TestMissingPath(c *gc.C) {
	ctx, _, stderr := newContext(c)

	code := cmd.Main(NewSuperCommand(), ctx, []string{"status"})
	c.Check(code, gc.Equals, 2)
	c.Check(stderr.String(), gc.Equals, "ERROR no path specified\n")
}

func (s *commandsSuite) TestAcquireRejectsRemoveWithoutIncrement(c *gc.C) {
	ctx, _, stderr := newContext(c)

	code := cmd.Main(NewSuperCommand(), ctx, []string{"acquire", "--remove-if-unused", "data.dat"})
	c.Check(code, gc.Equals, 2)
	c.Check(stderr.String(), gc.Equals, "ERROR --remove-if-unused requires --incr\n")
}

func (s *commandsSuite) TestHelp(c *gc.C) {
	ctx, stdout, _ := newContext(c)

	code := cmd.Main(NewSuperCommand(), ctx, []string{"acquire", "--help"})
	c.Check(code, gc.Equals, 0)
	c.Check(stdout.String(), jc.HasPrefix, "usage: acquire [options] <path>\npurpose: acquire and hold the lock of a file\n")
	c.Check(stdout.String(), jc.Contains, "-nowait")
}

func (s *commandsSuite) TestAcquireStatusRemove(c *gc.C) {
	requireSemaphores(c)
	ctx, _, _ := newContext(c)
	writeFile(c, ctx, "data.dat", "")
	s.AddCleanup(func(c *gc.C) {
		cleanup, _, _ := newContext(c)
		cleanup.Dir = ctx.Dir
		cmd.Main(NewSuperCommand(), cleanup, []string{"remove", "data.dat"})
	})

	// Hold the lock until told to stop.
	release := make(chan os.Signal)
	acquire := newAcquireCommand()
	acquire.signals = func(ch chan<- os.Signal) func() {
		go func() { ch <- <-release }()
		return func() {}
	}
	super := cmd.NewSuperCommand("ftoklock", "", "")
	super.Register(acquire)

	done := make(chan int, 1)
	holderCtx, _, holderErr := newContext(c)
	holderCtx.Dir = ctx.Dir
	go func() {
		done <- cmd.Main(super, holderCtx, []string{"acquire", "--incr", "data.dat"})
	}()

	// The lock shows as held by this process once the holder has it.
	var status string
	timeout := time.After(testing.LongWait)
	for !strings.Contains(status, "held: true\n") || !strings.Contains(status, "valid: true\n") {
		select {
		case <-timeout:
			c.Fatalf("timed out waiting for the lock to be held; status: %s", status)
		case <-time.After(10 * time.Millisecond):
		}
		statusCtx, stdout, _ := newContext(c)
		statusCtx.Dir = ctx.Dir
		if cmd.Main(NewSuperCommand(), statusCtx, []string{"status", "data.dat"}) == 0 {
			status = stdout.String()
		}
	}
	c.Check(status, jc.Contains, fmt.Sprintf("holder-pid: %d\n", os.Getpid()))
	c.Check(status, jc.Contains, "attached: 1\n")

	// A second acquire from the same process fails fast.
	busyCtx, _, busyErr := newContext(c)
	busyCtx.Dir = ctx.Dir
	code := cmd.Main(NewSuperCommand(), busyCtx, []string{"acquire", "--nowait", "data.dat"})
	c.Check(code, gc.Equals, 1)
	c.Check(busyErr.String(), jc.Contains, "semaphore held by another process")

	release <- os.Interrupt
	select {
	case code := <-done:
		c.Check(code, gc.Equals, 0, gc.Commentf("stderr: %s", holderErr))
	case <-time.After(testing.LongWait):
		c.Fatalf("timed out waiting for the holder")
	}
	c.Check(holderErr.String(), jc.Contains, "acquired lock for ")
	c.Check(holderErr.String(), jc.Contains, "released lock for ")

	removeCtx, _, removeErr := newContext(c)
	removeCtx.Dir = ctx.Dir
	code = cmd.Main(NewSuperCommand(), removeCtx, []string{"remove", "data.dat"})
	c.Check(code, gc.Equals, 0, gc.Commentf("stderr: %s", removeErr))
}
