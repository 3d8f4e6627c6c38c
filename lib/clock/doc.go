// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The trace recorder stamps records with Clock.Now and the session
// waits out the shell's hangup grace period with Clock.After. Both take
// a Clock so tests can pin timestamps and fire the grace period without
// sleeping:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go shell.Terminate(fake, grace)
//	fake.WaitForTimers(1)  // wait for Terminate to start its timer
//	fake.Advance(grace)    // fire it deterministically
package clock
