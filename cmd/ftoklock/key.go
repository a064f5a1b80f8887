// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/juju/ftoklock/cmd"
	"github.com/juju/ftoklock/internal/ftok"
)

const keyDoc = `
Print the semaphore key derived from a file. Hard links, symlinks and
renames of a file all share its key; a file recreated at the same path
usually does not.
`

type keyCommand struct {
	resourceCommand
	out cmd.Output
}

func newKeyCommand() *keyCommand {
	return &keyCommand{resourceCommand: newResourceCommand()}
}

type keyInfo struct {
	Path      string `yaml:"path" json:"path"`
	ProjectID int    `yaml:"project-id" json:"project-id"`
	Key       string `yaml:"key" json:"key"`
}

func (c *keyCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:        "key",
		Args:        "<path>",
		Purpose:     "print the semaphore key of a file",
		Doc:         keyDoc,
		Intersperse: true,
	}
}

func (c *keyCommand) SetFlags(f *gnuflag.FlagSet) {
	c.resourceCommand.SetFlags(f)
	c.out.AddFlags(f, "hex", map[string]cmd.Formatter{
		"hex":  formatKeyHex,
		"yaml": cmd.FormatYaml,
		"json": cmd.FormatJson,
	})
}

func formatKeyHex(w io.Writer, value any) error {
	info, ok := value.(keyInfo)
	if !ok {
		return errors.Errorf("expected key info, got %T", value)
	}
	_, err := fmt.Fprintln(w, info.Key)
	return err
}

func (c *keyCommand) Run(ctx *cmd.Context) error {
	file, err := c.fileConfig(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	identity := c.identity(ctx, file)
	key, err := ftok.DeriveKey(identity)
	if err != nil {
		return errors.Trace(err)
	}
	return c.out.Write(ctx, keyInfo{
		Path:      identity.Path,
		ProjectID: identity.ProjectID,
		Key:       fmt.Sprintf("%#08x", uint32(key)),
	})
}
