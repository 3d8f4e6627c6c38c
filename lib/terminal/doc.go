// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package terminal changes terminal attributes and puts them back.
//
// The package-level functions change a descriptor's termios directly.
// They suit pseudo-terminals the program allocates itself and closes
// on its own schedule. Terminals the program inherits, such as its
// controlling terminal or a serial device named on the command line,
// are changed through a [Guard] instead: the guard records a
// descriptor's attributes the first time it is touched and restores
// every recorded descriptor, once, when Restore is called. Binaries
// register Guard.Restore with process.AtExit so those terminals are
// left as they were found whichever way the program ends.
//
// The attribute changes use termios directly and are Linux only.
package terminal
