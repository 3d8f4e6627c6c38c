// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/demul/demul/cmd/demul/cli"
	"github.com/demul/demul/lib/trace"
	"github.com/demul/demul/lib/version"
)

type dumpOptions struct {
	hexDump bool
	channel string
	version bool
}

func run(args []string) error {
	var options dumpOptions
	command := &cli.Command{
		Name:    "demul-trace",
		Summary: "Print the frames recorded by demul --trace",
		Description: `Print the frames recorded by demul --trace, one line per frame: the
time, tx for frames sent to the peer or rx for frames received from it,
the channel id, the payload length, and the payload as a quoted string.`,
		Usage: "demul-trace FILE [flags]",
		Examples: []cli.Example{
			{Description: "Show the debugger traffic on channel 2 as hex", Command: "demul-trace link.trace --channel 2 --hex"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("demul-trace", pflag.ContinueOnError)
			flagSet.BoolVar(&options.hexDump, "hex", false, "print payloads as a hex dump")
			flagSet.StringVar(&options.channel, "channel", "", "only print frames of this channel id")
			flagSet.BoolVar(&options.version, "version", false, "print the version and exit")
			return flagSet
		},
		Run: func(args []string) error {
			if options.version {
				_, err := fmt.Println(version.Info())
				return err
			}
			if len(args) != 1 {
				return cli.Validation("expected one trace file, got %d arguments", len(args)).
					WithHint("Run 'demul-trace --help' for usage.")
			}
			if len(options.channel) > 1 {
				return cli.Validation("--channel takes a single character, got %q", options.channel)
			}
			reader, err := trace.Open(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			defer reader.Close()

			count, err := dump(os.Stdout, reader, options)
			if err != nil {
				// A recorder that never closed leaves a partial record.
				fmt.Fprintf(os.Stderr, "%s: stopped after %d records: %v\n", args[0], count, err)
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
	return command.Execute(args)
}

// dump writes the records of reader to w and returns how many records
// it read. An error other than io.EOF from the reader is returned as
// is; for a truncated trace that is an unexpected EOF.
func dump(w io.Writer, reader *trace.Reader, options dumpOptions) (int, error) {
	count := 0
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
		if options.channel != "" && record.Channel != options.channel[0] {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s %s %c %d", record.Time.UTC().Format(time.RFC3339Nano),
			record.Direction, record.Channel, len(record.Payload)); err != nil {
			return count, err
		}
		if options.hexDump {
			if _, err := fmt.Fprintf(w, "\n%s", hex.Dump(record.Payload)); err != nil {
				return count, err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, " %s\n", strconv.Quote(string(record.Payload))); err != nil {
			return count, err
		}
	}
}
