// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	corelogger "github.com/juju/ftoklock/core/logger"
	"github.com/juju/ftoklock/internal/semlock"
)

// fileConfig is the YAML configuration read with --config. Zero values
// keep the defaults.
type fileConfig struct {
	ProjectID         int            `yaml:"project-id"`
	Mode              string         `yaml:"mode"`
	RetryBudget       int            `yaml:"retry-budget"`
	RetryDelay        time.Duration  `yaml:"retry-delay"`
	WaitTimeout       time.Duration  `yaml:"wait-timeout"`
	LongWaitThreshold *time.Duration `yaml:"long-wait-threshold"`
	FailOnLiveHolder  bool           `yaml:"fail-on-live-holder"`
	DebugDir          string         `yaml:"debug-dir"`
}

// readConfig reads the configuration file at path. Unknown keys are
// rejected.
func readConfig(path string) (fileConfig, error) {
	var config fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return config, errors.Annotate(err, "reading config")
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && err != io.EOF {
		return config, errors.Annotatef(err, "parsing config %q", path)
	}
	if config.ProjectID < 0 || config.ProjectID > 255 {
		return config, errors.NotValidf("project-id %d", config.ProjectID)
	}
	return config, nil
}

// apply overrides the protocol configuration with the values set in the
// file.
func (c fileConfig) apply(config *semlock.Config, log corelogger.Logger) error {
	if c.Mode != "" {
		mode, err := strconv.ParseUint(c.Mode, 8, 32)
		if err != nil {
			return errors.NotValidf("mode %q", c.Mode)
		}
		config.Mode = os.FileMode(mode)
	}
	if c.RetryBudget != 0 {
		config.RetryBudget = c.RetryBudget
	}
	if c.RetryDelay != 0 {
		config.RetryDelay = c.RetryDelay
	}
	if c.WaitTimeout != 0 {
		config.WaitTimeout = c.WaitTimeout
	}
	if c.LongWaitThreshold != nil {
		config.LongWaitThreshold = *c.LongWaitThreshold
	}
	config.FailOnLiveHolder = config.FailOnLiveHolder || c.FailOnLiveHolder
	if c.DebugDir != "" {
		config.LongWait = semlock.GoroutineDump(c.DebugDir, log)
	}
	return nil
}
