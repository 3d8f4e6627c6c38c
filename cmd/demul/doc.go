// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Demul multiplexes an interactive shell and binary channels over one
// serial line.
//
// The role follows from the positional arguments:
//
//	demul                 server on standard input and output
//	demul nopost          server, shell terminal output unprocessed
//	demul DEVICE          client through a read-write device
//	demul INPUT OUTPUT    client through separate input and output
//
// Both ends print the pseudo-terminals they created. Attach a terminal
// to the interactive channel and tools to the binary channels. The
// --trace flag records every frame for later inspection with
// demul-trace.
package main
