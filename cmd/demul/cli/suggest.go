// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestionDistance is the largest edit distance still offered as a
// correction. Three covers a transposition plus a dropped character.
const maxSuggestionDistance = 3

// closest returns the candidate nearest to input, or "" when none is
// within maxSuggestionDistance. Ties go to the earlier candidate.
func closest(input string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, candidate := range candidates {
		if distance := levenshtein(input, candidate); distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best
}

// suggestCommand returns the subcommand name closest to input.
func suggestCommand(input string, commands []*Command) string {
	names := make([]string, 0, len(commands))
	for _, command := range commands {
		names = append(names, command.Name)
	}
	return closest(input, names)
}

// suggestFlag finds the first flag in args that flagSet does not
// define and returns a corrected spelling, keeping any "=value" the user
// gave ("--bard=9600" becomes "--baud=9600"). Single-dash arguments are
// matched against shorthands as well as long names. Returns "" when
// every flag is known or the unknown one is not close to anything.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	for _, arg := range args {
		if arg == "--" {
			return ""
		}
		if len(arg) < 2 || arg[0] != '-' {
			continue
		}

		long := strings.HasPrefix(arg, "--")
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if known(flagSet, name, long) {
			continue
		}

		var longNames, shorthands []string
		flagSet.VisitAll(func(flag *pflag.Flag) {
			longNames = append(longNames, flag.Name)
			if flag.Shorthand != "" {
				shorthands = append(shorthands, flag.Shorthand)
			}
		})

		suggestion := ""
		if match := closest(name, longNames); match != "" {
			suggestion = "--" + match
		} else if !long && len(name) == 1 {
			// A lone unknown shorthand: any single letter is within
			// reach of every other, so only offer it when it differs
			// from a real shorthand by case ("-V" for "-v").
			for _, shorthand := range shorthands {
				if strings.EqualFold(shorthand, name) {
					suggestion = "-" + shorthand
					break
				}
			}
		}
		if suggestion != "" && hasValue {
			suggestion += "=" + value
		}
		return suggestion
	}
	return ""
}

// known reports whether name is a defined flag. A single-dash argument
// may name a shorthand or, as pflag allows, a group of shorthands.
func known(flagSet *pflag.FlagSet, name string, long bool) bool {
	if flagSet.Lookup(name) != nil {
		return true
	}
	if long {
		return false
	}
	for _, letter := range name {
		// ShorthandLookup panics on names longer than one byte.
		if letter >= 0x80 || flagSet.ShorthandLookup(string(letter)) == nil {
			return false
		}
	}
	return name != ""
}

// levenshtein returns the edit distance between a and b, using one row
// of the distance table indexed by the shorter string.
func levenshtein(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	row := make([]int, len(a)+1)
	for i := range row {
		row[i] = i
	}
	for j := 1; j <= len(b); j++ {
		diagonal := row[0]
		row[0] = j
		for i := 1; i <= len(a); i++ {
			substitution := diagonal
			if a[i-1] != b[j-1] {
				substitution++
			}
			diagonal = row[i]
			row[i] = min(row[i]+1, row[i-1]+1, substitution)
		}
	}
	return row[len(a)]
}
