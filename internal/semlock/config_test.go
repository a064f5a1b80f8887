// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	loggertesting "github.com/juju/ftoklock/internal/logger/testing"
)

type configSuite struct {
	baseSuite
}

var _ = gc.Suite(&configSuite{})

func (s *configSuite) TestDefaultConfigIsValid(c *gc.C) {
	config := DefaultConfig(loggertesting.WrapCheckLog(c))
	c.Check(config.Validate(), jc.ErrorIsNil)
	c.Check(config.RetryBudget, gc.Equals, DefaultRetryBudget)
	c.Check(config.WaitTimeout, gc.Equals, DefaultWaitTimeout)
	c.Check(config.LongWaitThreshold, gc.Equals, DefaultLongWaitThreshold)
}

func (s *configSuite) TestValidate(c *gc.C) {
	tests := []struct {
		mutate func(*Config)
		err    string
	}{{
		mutate: func(c *Config) { c.Kernel = nil },
		err:    "nil Kernel not valid",
	}, {
		mutate: func(c *Config) { c.Clock = nil },
		err:    "nil Clock not valid",
	}, {
		mutate: func(c *Config) { c.Logger = nil },
		err:    "nil Logger not valid",
	}, {
		mutate: func(c *Config) { c.Metrics = nil },
		err:    "nil Metrics not valid",
	}, {
		mutate: func(c *Config) { c.Mode = 0 },
		err:    "empty Mode not valid",
	}, {
		mutate: func(c *Config) { c.RetryBudget = 0 },
		err:    "RetryBudget 0 not valid",
	}, {
		mutate: func(c *Config) { c.RetryDelay = 0 },
		err:    "RetryDelay 0s not valid",
	}, {
		mutate: func(c *Config) { c.WaitTimeout = -1 },
		err:    "WaitTimeout -1ns not valid",
	}, {
		mutate: func(c *Config) { c.LongWaitThreshold = -1 },
		err:    "LongWaitThreshold -1ns not valid",
	}, {
		mutate: func(c *Config) { c.ProcessAlive = nil },
		err:    "nil ProcessAlive not valid",
	}}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.err)
		config := s.newConfig(c, newFakeIPC().process(1))
		test.mutate(&config)

		err := config.Validate()
		c.Check(err, jc.ErrorIs, errors.NotValid)
		c.Check(err, gc.ErrorMatches, test.err)

		_, err = NewProtocol(config)
		c.Check(err, jc.ErrorIs, errors.NotValid)
	}
}
