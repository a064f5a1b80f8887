// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	internallogger "github.com/juju/ftoklock/internal/logger"
)

// LoggingConfigEnvKey names the environment variable holding the default
// logging configuration.
const LoggingConfigEnvKey = "FTOKLOCK_LOGGING_CONFIG"

var logger = internallogger.GetLogger("ftoklock.cmd")

// SuperCommand is a Command that selects a subcommand by name.
type SuperCommand struct {
	Name    string
	Purpose string
	Doc     string

	loggingConfig string
	subcmds       map[string]Command
	subcmd        Command
	help          bool
}

// NewSuperCommand returns a SuperCommand with no subcommands. The default
// logging configuration is taken from the environment.
func NewSuperCommand(name, purpose, doc string) *SuperCommand {
	return &SuperCommand{
		Name:          name,
		Purpose:       purpose,
		Doc:           doc,
		loggingConfig: os.Getenv(LoggingConfigEnvKey),
		subcmds:       make(map[string]Command),
	}
}

// Register makes a subcommand available.
func (c *SuperCommand) Register(subcmd Command) {
	name := subcmd.Info().Name
	if _, found := c.subcmds[name]; found {
		panic(fmt.Sprintf("command already registered: %q", name))
	}
	c.subcmds[name] = subcmd
}

// Info implements Command.
func (c *SuperCommand) Info() *Info {
	return &Info{
		Name:    c.Name,
		Args:    "<command> ...",
		Purpose: c.Purpose,
		Doc:     c.Doc + "\n\n" + c.describeCommands(),
	}
}

func (c *SuperCommand) describeCommands() string {
	names := make([]string, 0, len(c.subcmds))
	longest := 0
	for name := range c.subcmds {
		names = append(names, name)
		if len(name) > longest {
			longest = len(name)
		}
	}
	sort.Strings(names)

	lines := []string{"commands:"}
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("    %-*s - %s", longest, name, c.subcmds[name].Info().Purpose))
	}
	return strings.Join(lines, "\n")
}

// SetFlags implements Command.
func (c *SuperCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.loggingConfig, "logging-config", c.loggingConfig, "specify log levels for modules")
}

// Init implements Command.
func (c *SuperCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no command specified")
	}
	subcmd, found := c.subcmds[args[0]]
	if !found {
		return errors.Errorf("unrecognized command: %s %s", c.Name, args[0])
	}
	c.subcmd = subcmd

	err := Parse(subcmd, args[1:])
	if errors.Is(err, gnuflag.ErrHelp) {
		c.help = true
		return nil
	}
	return err
}

// Run implements Command.
func (c *SuperCommand) Run(ctx *Context) error {
	if c.help {
		PrintUsage(c.subcmd, ctx.Stdout)
		return nil
	}
	if err := internallogger.ConfigureLoggers(c.loggingConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	logger.Debugf(ctx, "running %s %s", c.Name, c.subcmd.Info().Name)
	return c.subcmd.Run(ctx)
}
