// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	loggertesting "github.com/juju/ftoklock/internal/logger/testing"
	"github.com/juju/ftoklock/internal/semlock"
)

type configSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&configSuite{})

func (s *configSuite) TestReadConfig(c *gc.C) {
	ctx, _, _ := newContext(c)
	path := writeFile(c, ctx, "config.yaml", `
project-id: 7
mode: "0640"
retry-budget: 10
retry-delay: 5ms
wait-timeout: 2m
long-wait-threshold: 0s
fail-on-live-holder: true
`[1:])

	config, err := readConfig(path)
	c.Assert(err, jc.ErrorIsNil)
	zero := time.Duration(0)
	c.Check(config, jc.DeepEquals, fileConfig{
		ProjectID:         7,
		Mode:              "0640",
		RetryBudget:       10,
		RetryDelay:        5 * time.Millisecond,
		WaitTimeout:       2 * time.Minute,
		LongWaitThreshold: &zero,
		FailOnLiveHolder:  true,
	})
}

func (s *configSuite) TestReadEmptyConfig(c *gc.C) {
	ctx, _, _ := newContext(c)
	path := writeFile(c, ctx, "config.yaml", "")

	config, err := readConfig(path)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(config, jc.DeepEquals, fileConfig{})
}

func (s *configSuite) TestReadConfigUnknownKey(c *gc.C) {
	ctx, _, _ := newContext(c)
	path := writeFile(c, ctx, "config.yaml", "retry-budjet: 10\n")

	_, err := readConfig(path)
	c.Check(err, gc.ErrorMatches, `(?s)parsing config ".*config.yaml": .*field retry-budjet not found.*`)
}

func (s *configSuite) TestReadConfigInvalidProjectID(c *gc.C) {
	ctx, _, _ := newContext(c)
	path := writeFile(c, ctx, "config.yaml", "project-id: 256\n")

	_, err := readConfig(path)
	c.Check(err, jc.ErrorIs, errors.NotValid)
}

func (s *configSuite) TestReadConfigMissing(c *gc.C) {
	_, err := readConfig(c.MkDir() + "/missing.yaml")
	c.Check(err, jc.ErrorIs, os.ErrNotExist)
}

func (s *configSuite) TestApply(c *gc.C) {
	logger := loggertesting.WrapCheckLog(c)
	config := semlock.DefaultConfig(logger)

	threshold := time.Second
	file := fileConfig{
		Mode:              "600",
		RetryBudget:       3,
		WaitTimeout:       time.Minute,
		LongWaitThreshold: &threshold,
		FailOnLiveHolder:  true,
		DebugDir:          c.MkDir(),
	}
	err := file.apply(&config, logger)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(config.Mode, gc.Equals, os.FileMode(0o600))
	c.Check(config.RetryBudget, gc.Equals, 3)
	c.Check(config.RetryDelay, gc.Equals, semlock.DefaultRetryDelay)
	c.Check(config.WaitTimeout, gc.Equals, time.Minute)
	c.Check(config.LongWaitThreshold, gc.Equals, time.Second)
	c.Check(config.FailOnLiveHolder, jc.IsTrue)
	c.Assert(config.LongWait, gc.NotNil)
	c.Check(config.Validate(), jc.ErrorIsNil)

	config.LongWait(context.Background(), semlock.LongWait{Key: 0x1234})
	_, err = os.Stat(file.DebugDir + "/" + semlock.DebugFileName)
	c.Check(err, jc.ErrorIsNil)
}

func (s *configSuite) TestApplyKeepsDefaults(c *gc.C) {
	logger := loggertesting.WrapCheckLog(c)
	config := semlock.DefaultConfig(logger)

	err := fileConfig{}.apply(&config, logger)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(config.Mode, gc.Equals, semlock.DefaultMode)
	c.Check(config.RetryBudget, gc.Equals, semlock.DefaultRetryBudget)
	c.Check(config.LongWaitThreshold, gc.Equals, semlock.DefaultLongWaitThreshold)
	c.Check(config.LongWait, gc.IsNil)
}

func (s *configSuite) TestApplyInvalidMode(c *gc.C) {
	config := semlock.DefaultConfig(loggertesting.WrapCheckLog(c))

	err := fileConfig{Mode: "rw-r--r--"}.apply(&config, loggertesting.WrapCheckLog(c))
	c.Check(err, gc.ErrorMatches, `mode "rw-r--r--" not valid`)
}
