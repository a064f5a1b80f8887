// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"os"

	"github.com/juju/ftoklock/cmd"
)

const ftoklockDoc = `
ftoklock inspects and exercises the semaphore locks that processes sharing
a data file use to serialize access to it. The lock for a file is keyed by
the file's device and inode, so every path to the same file finds the same
lock.

Logging is configured with --logging-config or the ` + cmd.LoggingConfigEnvKey + `
environment variable, for example "<root>=INFO;ftoklock.semlock=TRACE".
`

// NewSuperCommand returns the ftoklock command with all of its
// subcommands registered.
func NewSuperCommand() *cmd.SuperCommand {
	c := cmd.NewSuperCommand("ftoklock", "inspect and exercise file semaphore locks", ftoklockDoc)
	c.Register(newKeyCommand())
	c.Register(newStatusCommand())
	c.Register(newAcquireCommand())
	c.Register(newRemoveCommand())
	return c
}

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	os.Exit(cmd.Main(NewSuperCommand(), ctx, os.Args[1:]))
}
