// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package mux multiplexes several byte-stream channels over a single
// byte-oriented transport such as a serial line.
//
// The wire protocol is line oriented and printable so that it survives
// links that were never meant to carry binary data. Every frame is
//
//	<apotap111><id><hex payload>\n
//
// where id is one byte naming the destination channel and the payload is
// the lowercase hex encoding of the raw bytes. [Encode] and [AppendFrame]
// produce frames. [Parser] recognizes them one byte at a time and
// resynchronizes on the next line boundary after any malformed input;
// noise is counted in [ParserStats] but never reported as an error.
//
// [Registry] holds the active channels, indexed by id and by input file
// descriptor. Channel id '0' ([CommonID]) is the common channel: it is
// bound to the transport itself and carries framed traffic. Every other
// channel carries raw bytes for a local process or device.
//
// [Engine] runs the event loop: one poll(2) per iteration over every
// channel's input descriptor. Bytes read from a local channel are framed
// and written to the common channel; bytes read from the common channel
// are fed to the parser and each decoded payload is written to the
// addressed channel. A channel whose descriptor hangs up is removed; a
// transport failure ends the loop with [ErrTransportFailed].
package mux
