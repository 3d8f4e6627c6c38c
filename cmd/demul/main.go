// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/demul/demul/cmd/demul/cli"
	"github.com/demul/demul/lib/process"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own output return an ExitError with
		// the desired exit code. Don't print a redundant "error:" line
		// for those.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			process.Exit(exitErr.Code)
		}
		code := cli.ExitCode(err)
		if code == 1 {
			process.Fatal(err)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		process.Exit(code)
	}
	process.Exit(0)
}

func run() error {
	return root(&flags{}).Execute(os.Args[1:])
}
