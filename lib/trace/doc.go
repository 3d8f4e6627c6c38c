// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace records the frames a multiplexer sends and receives.
//
// A trace file starts with an eight-byte magic, a format version byte,
// and a compression byte, followed by a CBOR sequence of [Record]
// values compressed as a single zstd or LZ4 stream (or not at all).
// [Recorder] implements mux.Observer and is attached to the engine with
// the --trace flag; [Reader] reads the records back for cmd/demul-trace.
//
// The recorder holds compressed data in memory until it is closed, so
// the binaries close it from an exit hook.
package trace
