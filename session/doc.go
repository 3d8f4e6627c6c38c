// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package session sets up the two ends of a demul link.
//
// [NewServer] builds the registry for the end that owns the shell: the
// common channel is the process's own standard input and output, the
// interactive channel is a shell started on a fresh pseudo-terminal,
// and each binary channel is a pseudo-terminal whose slave path local
// tools can open. [NewClient] builds the other end: the common channel
// is the transport device named on the command line and every other
// channel, the interactive one included, is a pseudo-terminal for the
// user to attach to.
//
// Both ends register channels in the same order and with the same ids,
// '0' for the transport, '1' for the shell, and '2' onward for binary
// channels, so the ends agree on the wire without negotiation. The
// returned [Session] hands its registry to a mux.Engine and owns every
// descriptor it opened until Close.
package session
