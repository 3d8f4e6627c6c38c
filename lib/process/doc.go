// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers.
//
// Programs that change process-wide state they must undo, such as the
// attributes of a controlling terminal, register the undo with AtExit.
// Exit, Fatal, and the signal handler installed by HandleSignals all run
// the registered hooks exactly once before the process ends, so the
// terminal is restored on every exit path the program controls.
package process
