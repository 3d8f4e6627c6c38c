// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for demul packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that tests running
// the multiplexer loop in a goroutine fail instead of hanging when an
// expected frame never arrives.
//
// [Pipe] returns an os.Pipe pair closed at test cleanup. Pipes are the
// cheapest pollable descriptors and stand in for pseudo-terminals and
// serial devices in engine tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
