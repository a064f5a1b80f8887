// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/ftoklock/cmd"
)

const statusDoc = `
Show the semaphore set backing the lock of a file: whether the lock is
held and by which process, how many processes are attached and how many
are waiting. The set is not created or changed.
`

type statusCommand struct {
	resourceCommand
	out cmd.Output
}

func newStatusCommand() *statusCommand {
	return &statusCommand{resourceCommand: newResourceCommand()}
}

type statusInfo struct {
	Path      string `yaml:"path" json:"path"`
	Key       string `yaml:"key" json:"key"`
	SemID     int    `yaml:"semid" json:"semid"`
	Held      bool   `yaml:"held" json:"held"`
	HolderPID int    `yaml:"holder-pid,omitempty" json:"holder-pid,omitempty"`
	Attached  int    `yaml:"attached" json:"attached"`
	Waiting   int    `yaml:"waiting" json:"waiting"`
	Marker    int    `yaml:"marker" json:"marker"`
	Valid     bool   `yaml:"valid" json:"valid"`
}

func (c *statusCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "status",
		Args:        "<path>",
		Purpose:     "show the state of the lock of a file",
		Doc:         statusDoc,
		Intersperse: true,
	}
}

func (c *statusCommand) SetFlags(f *gnuflag.FlagSet) {
	c.resourceCommand.SetFlags(f)
	c.out.AddFlags(f, "yaml", cmd.DefaultFormatters)
}

func (c *statusCommand) Run(ctx *cmd.Context) error {
	identity, p, err := c.protocol(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	status, err := p.Status(ctx, identity)
	if err != nil {
		return errors.Trace(err)
	}

	info := statusInfo{
		Path:     identity.Path,
		Key:      fmt.Sprintf("%#08x", uint32(status.Key)),
		SemID:    int(status.SemID),
		Held:     !status.Free(),
		Attached: status.Counter,
		Waiting:  status.Waiters,
		Marker:   status.Marker,
		Valid:    status.Valid,
	}
	if info.Held {
		info.HolderPID = status.HolderPID
	}
	return c.out.Write(ctx, info)
}
