// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitHooks is an ordered set of functions to run once when the process
// ends. Hooks run in reverse registration order, like deferred calls.
type ExitHooks struct {
	mu    sync.Mutex
	hooks []func()
	ran   bool
}

// Add registers hook. Hooks added after Run has started are run
// immediately, since there is no later point at which to run them.
func (e *ExitHooks) Add(hook func()) {
	e.mu.Lock()
	if e.ran {
		e.mu.Unlock()
		hook()
		return
	}
	e.hooks = append(e.hooks, hook)
	e.mu.Unlock()
}

// Run calls every registered hook, last registered first. Only the
// first call does anything.
func (e *ExitHooks) Run() {
	e.mu.Lock()
	if e.ran {
		e.mu.Unlock()
		return
	}
	e.ran = true
	hooks := e.hooks
	e.hooks = nil
	e.mu.Unlock()

	for index := len(hooks) - 1; index >= 0; index-- {
		hooks[index]()
	}
}

var (
	defaultHooks ExitHooks

	// exit is replaced in tests.
	exit = os.Exit
)

// AtExit registers hook with the process-wide exit hooks.
func AtExit(hook func()) {
	defaultHooks.Add(hook)
}

// RunExitHooks runs the process-wide exit hooks. main should defer it
// so hooks also run on a normal return.
func RunExitHooks() {
	defaultHooks.Run()
}

// Exit runs the exit hooks and terminates the process with code.
func Exit(code int) {
	RunExitHooks()
	exit(code)
}

// Fatal writes "error: err" to stderr, runs the exit hooks, and exits
// with code 1. Use it in main() for errors from run() where the
// structured logger may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	Exit(1)
}

// HandleSignals arranges for the given signals (SIGINT, SIGTERM and
// SIGHUP if none are named) to run the exit hooks and terminate the
// process with the conventional 128+signal status. The returned
// function uninstalls the handler.
func HandleSignals(signals ...os.Signal) (stop func()) {
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
	}
	received := make(chan os.Signal, 1)
	signal.Notify(received, signals...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-received:
			Exit(signalStatus(sig))
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(received)
			close(done)
		})
	}
}

// signalStatus returns the shell convention exit status for a process
// terminated by sig.
func signalStatus(sig os.Signal) int {
	if number, ok := sig.(syscall.Signal); ok {
		return 128 + int(number)
	}
	return 1
}
