// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Demul-trace prints a frame trace written by demul --trace.
package main
