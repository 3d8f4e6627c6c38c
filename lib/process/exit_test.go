// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"slices"
	"syscall"
	"testing"
	"time"
)

func TestExitHooksRunOnceInReverse(t *testing.T) {
	var hooks ExitHooks
	var order []int
	for index := range 3 {
		hooks.Add(func() { order = append(order, index) })
	}

	hooks.Run()
	hooks.Run()

	if want := []int{2, 1, 0}; !slices.Equal(order, want) {
		t.Fatalf("hook order = %v, want %v", order, want)
	}
}

func TestExitHooksAddAfterRun(t *testing.T) {
	var hooks ExitHooks
	hooks.Run()

	called := false
	hooks.Add(func() { called = true })
	if !called {
		t.Fatal("hook added after Run was not run")
	}
}

// withFakeExit swaps the process exit and hooks for the duration of a
// test and returns a channel receiving the exit code.
func withFakeExit(t *testing.T) <-chan int {
	t.Helper()
	codes := make(chan int, 1)
	savedExit := exit
	exit = func(code int) { codes <- code }
	defaultHooks = ExitHooks{}
	t.Cleanup(func() {
		exit = savedExit
		defaultHooks = ExitHooks{}
	})
	return codes
}

func TestExitRunsHooks(t *testing.T) {
	codes := withFakeExit(t)
	restored := false
	AtExit(func() { restored = true })

	Exit(3)

	if code := <-codes; code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if !restored {
		t.Error("exit hook did not run")
	}
}

func TestHandleSignals(t *testing.T) {
	codes := withFakeExit(t)
	hookRan := make(chan struct{})
	AtExit(func() { close(hookRan) })

	stop := HandleSignals(syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case code := <-codes:
		if want := 128 + int(syscall.SIGUSR1); code != want {
			t.Errorf("exit code = %d, want %d", code, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("signal did not trigger exit")
	}
	select {
	case <-hookRan:
	default:
		t.Error("exit hook did not run before exit")
	}
}
