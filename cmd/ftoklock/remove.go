// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"github.com/juju/errors"

	"github.com/juju/ftoklock/cmd"
)

const removeDoc = `
Remove the semaphore set backing the lock of a file. Processes waiting for
the lock wake up and start again with a new set. Use this to clear a set
whose creator died before initialising it, or one left behind by another
program using the same key.
`

type removeCommand struct {
	resourceCommand
}

func newRemoveCommand() *removeCommand {
	return &removeCommand{resourceCommand: newResourceCommand()}
}

func (c *removeCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "remove",
		Args:        "<path>",
		Purpose:     "remove the semaphore set of a file",
		Doc:         removeDoc,
		Intersperse: true,
	}
}

func (c *removeCommand) Run(ctx *cmd.Context) error {
	identity, p, err := c.protocol(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if err := p.Remove(ctx, identity); err != nil {
		return errors.Trace(err)
	}
	ctx.Infof("removed semaphore set for %s", identity.Path)
	return nil
}
