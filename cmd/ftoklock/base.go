// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/ftoklock/cmd"
	corelogger "github.com/juju/ftoklock/core/logger"
	"github.com/juju/ftoklock/internal/ftok"
	internallogger "github.com/juju/ftoklock/internal/logger"
	"github.com/juju/ftoklock/internal/semlock"
)

const defaultProjectID = 1

var logger = internallogger.GetLogger("ftoklock")

// resourceCommand is embedded by commands that operate on the lock of a
// single file.
type resourceCommand struct {
	configPath string
	projectID  int
	path       string

	// newConfig returns the protocol configuration before the config
	// file is applied.
	newConfig func(corelogger.Logger) semlock.Config
}

func newResourceCommand() resourceCommand {
	return resourceCommand{newConfig: semlock.DefaultConfig}
}

func (c *resourceCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "Path to a YAML file of lock settings")
	f.IntVar(&c.projectID, "project-id", 0, "Project id distinguishing locks on the same file (1-255)")
}

func (c *resourceCommand) Init(args []string) error {
	switch len(args) {
	case 0:
		return errors.New("no path specified")
	case 1:
		c.path = args[0]
		return nil
	default:
		return cmd.CheckEmpty(args[1:])
	}
}

// fileConfig returns the contents of the config file, if there is one.
func (c *resourceCommand) fileConfig(ctx *cmd.Context) (fileConfig, error) {
	if c.configPath == "" {
		return fileConfig{}, nil
	}
	return readConfig(ctx.AbsPath(c.configPath))
}

// identity resolves the resource. The project id flag takes precedence
// over the config file.
func (c *resourceCommand) identity(ctx *cmd.Context, config fileConfig) ftok.Identity {
	projectID := c.projectID
	if projectID == 0 {
		projectID = config.ProjectID
	}
	if projectID == 0 {
		projectID = defaultProjectID
	}
	return ftok.Identity{Path: ctx.AbsPath(c.path), ProjectID: projectID}
}

// protocol returns the identity of the resource and a protocol configured
// from the config file.
func (c *resourceCommand) protocol(ctx *cmd.Context) (ftok.Identity, *semlock.Protocol, error) {
	file, err := c.fileConfig(ctx)
	if err != nil {
		return ftok.Identity{}, nil, errors.Trace(err)
	}
	semlogger := logger.Child("semlock")
	config := c.newConfig(semlogger)
	if err := file.apply(&config, semlogger); err != nil {
		return ftok.Identity{}, nil, errors.Trace(err)
	}
	p, err := semlock.NewProtocol(config)
	if err != nil {
		return ftok.Identity{}, nil, errors.Annotate(err, "invalid lock settings")
	}
	return c.identity(ctx, file), p, nil
}
