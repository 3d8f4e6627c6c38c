// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the demul
// binaries.
//
// The central type is [Command], which represents a named command with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. A command with both subcommands and Run passes any
// positional arguments that do not name a subcommand to Run, which is
// how "demul DEVICE" and "demul client DEVICE" coexist.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// Errors are categorized with [ToolError] ([Validation], [Transient],
// [Internal]); [ExitCode] maps any error to the process exit status.
// [NewCommandLogger] builds the slog logger every command uses.
package cli
