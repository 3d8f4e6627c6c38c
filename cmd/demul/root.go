// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"

	"github.com/demul/demul/cmd/demul/cli"
	"github.com/demul/demul/lib/version"
)

// flags holds the command-line overrides shared by every role. Zero
// values defer to the configuration file.
type flags struct {
	configPath     string
	shell          string
	binaryChannels int
	baud           int
	tracePath      string
	verbose        bool
	version        bool
}

func (f *flags) flagSet(name string) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		flagSet.StringVar(&f.configPath, "config", "", "configuration file (default: $DEMUL_CONFIG)")
		flagSet.StringVar(&f.shell, "shell", "", "program to run on the interactive channel (server)")
		flagSet.IntVar(&f.binaryChannels, "binary-channels", 0, "number of binary channels; both ends must agree")
		flagSet.IntVar(&f.baud, "baud", 0, "transport line speed when it is a serial port (client)")
		flagSet.StringVar(&f.tracePath, "trace", "", "record every frame to this file")
		flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
		flagSet.BoolVar(&f.version, "version", false, "print the version and exit")
		return flagSet
	}
}

// mode is the role a command line selects.
type mode struct {
	server bool
	noPost bool
	// inPath and outPath are the client's transport. outPath is empty
	// when one device carries both directions.
	inPath  string
	outPath string
}

func root(f *flags) *cli.Command {
	command := &cli.Command{
		Name:    "demul",
		Summary: "Multiplex a shell and binary channels over one serial line",
		Description: `Multiplex an interactive shell and one or more binary channels over a
single serial line.

Run without arguments on the far machine, where the serial console is
standard input and output: demul starts a shell on a new pseudo-terminal
and prints the devices it created to stderr. Run on the near machine with
the serial device: demul creates the matching pseudo-terminals and prints
their paths. Attach a terminal emulator to the interactive channel and a
debugger or other tool to each binary channel.`,
		Usage: "demul [nopost | DEVICE | INPUT OUTPUT] [flags]",
		Examples: []cli.Example{
			{Description: "Serve on the serial console of the far machine", Command: "demul"},
			{Description: "Serve with output post-processing disabled", Command: "demul nopost"},
			{Description: "Connect through a serial port at 115200 baud", Command: "demul /dev/ttyUSB0 --baud 115200"},
			{Description: "Connect through a pair of FIFOs", Command: "demul /tmp/from-target /tmp/to-target"},
		},
		Flags: f.flagSet("demul"),
	}
	command.Run = func(args []string) error {
		if f.version {
			return printVersion()
		}
		selected, err := modeFromArgs(args, command.SuggestSubcommand)
		if err != nil {
			return err
		}
		return f.run(selected)
	}
	command.Subcommands = []*cli.Command{
		{
			Name:    "server",
			Summary: "Serve on standard input and output",
			Usage:   "demul server [flags]",
			Flags:   f.flagSet("server"),
			Run: func(args []string) error {
				if len(args) != 0 {
					return cli.Validation("server takes no arguments, got %d", len(args))
				}
				return f.run(mode{server: true})
			},
		},
		{
			Name:    "nopost",
			Summary: "Serve with output post-processing disabled on the shell's terminal",
			Usage:   "demul nopost [flags]",
			Flags:   f.flagSet("nopost"),
			Run: func(args []string) error {
				if len(args) != 0 {
					return cli.Validation("nopost takes no arguments, got %d", len(args))
				}
				return f.run(mode{server: true, noPost: true})
			},
		},
		{
			Name:    "client",
			Summary: "Connect to a server through a device or a pair of files",
			Usage:   "demul client DEVICE | INPUT OUTPUT [flags]",
			Flags:   f.flagSet("client"),
			Run: func(args []string) error {
				if len(args) == 0 {
					return cli.Validation("client needs a transport device").
						WithHint("Run 'demul client --help' for usage.")
				}
				selected, err := modeFromArgs(args, nil)
				if err != nil {
					return err
				}
				return f.run(selected)
			},
		},
		{
			Name:    "version",
			Summary: "Print version information",
			Run: func(args []string) error {
				_, err := fmt.Println(version.Full())
				return err
			},
		},
	}
	return command
}

// modeFromArgs maps positional arguments to a role: none for the
// server, one device for a client, two for a client with separate
// input and output. A single argument that names no file but looks like
// a subcommand is reported as a typo when suggest is set.
func modeFromArgs(args []string, suggest func(string) string) (mode, error) {
	switch len(args) {
	case 0:
		return mode{server: true}, nil
	case 1:
		if suggest != nil {
			if _, err := os.Stat(args[0]); errors.Is(err, fs.ErrNotExist) {
				if suggestion := suggest(args[0]); suggestion != "" {
					return mode{}, cli.Validation("%q is neither a device nor a command (did you mean %q?)", args[0], suggestion)
				}
			}
		}
		return mode{inPath: args[0]}, nil
	case 2:
		return mode{inPath: args[0], outPath: args[1]}, nil
	default:
		return mode{}, cli.Validation("expected at most two transport paths, got %d arguments", len(args)).
			WithHint("Run 'demul --help' for usage.")
	}
}

func printVersion() error {
	_, err := fmt.Println(version.Info())
	return err
}
