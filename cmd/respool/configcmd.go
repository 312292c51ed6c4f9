package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/go-i2p/respool/lib/config"
	apperrors "github.com/go-i2p/respool/lib/errors"
)

func (c *cli) configCmd(args []string) int {
	if len(args) == 0 {
		printConfigUsage(c)
		return exitUsage
	}

	switch args[0] {
	case "init":
		return c.configInit(args[1:])
	case "show":
		return c.configShow()
	default:
		fmt.Fprintf(c.stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage(c)
		return exitUsage
	}
}

func printConfigUsage(c *cli) {
	fmt.Fprintln(c.stderr, "Usage: respool [--config PATH] config <command>")
	fmt.Fprintln(c.stderr, "\nAvailable commands:")
	fmt.Fprintln(c.stderr, "  init [--force]  Write the default configuration to PATH")
	fmt.Fprintln(c.stderr, "  show            Print the effective configuration")
}

// configInit writes the defaults to --config, refusing to overwrite an
// existing file unless --force is given.
func (c *cli) configInit(args []string) int {
	fs := pflag.NewFlagSet("config init", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	force := fs.BoolP("force", "f", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if _, err := os.Stat(c.configPath); err == nil && !*force {
		return c.fail("config init refused",
			apperrors.New(apperrors.CodeState, c.configPath+" already exists (use --force to overwrite)"))
	}

	if err := config.SaveConfig(config.DefaultConfig(), c.configPath); err != nil {
		return c.fail("failed to write config", err)
	}
	fmt.Fprintf(c.stdout, "Wrote %s\n", c.configPath)
	return exitOK
}

// configShow prints the configuration after defaults are applied, in the
// format of the --config file.
func (c *cli) configShow() int {
	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail("failed to load config", err)
	}
	data, err := config.Marshal(cfg, c.configPath)
	if err != nil {
		return c.fail("failed to encode config", apperrors.WrapInternal(err))
	}
	c.stdout.Write(data)
	return exitOK
}
