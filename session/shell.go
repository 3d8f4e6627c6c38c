// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/demul/demul/lib/clock"
)

// DefaultShellGrace is how long Terminate waits after SIGHUP before
// killing the shell.
const DefaultShellGrace = 2 * time.Second

// Shell is a process running as session leader on a pseudo-terminal.
// A goroutine reaps it as soon as it exits.
type Shell struct {
	cmd    *exec.Cmd
	done   chan struct{}
	err    error
	logger *slog.Logger
}

// StartShell runs argv with tty as its standard input, output, error,
// and controlling terminal. The caller should close its own copy of tty
// once StartShell returns so the master sees a hangup when the shell
// exits.
func StartShell(argv []string, tty *os.File, logger *slog.Logger) (*Shell, error) {
	if len(argv) == 0 {
		return nil, errors.New("no shell command")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
		Ctty:    0, // fd 0 in child = tty
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}

	shell := &Shell{
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: logger.With("pid", cmd.Process.Pid),
	}
	go shell.wait()
	return shell, nil
}

func (shell *Shell) wait() {
	shell.err = shell.cmd.Wait()
	if isNormalShellExit(shell.err) {
		shell.logger.Info("shell exited", "status", shell.cmd.ProcessState.String())
	} else {
		shell.logger.Warn("shell exited abnormally", "error", shell.err)
	}
	close(shell.done)
}

// Pid returns the shell's process id, which is also its process group
// and session id.
func (shell *Shell) Pid() int {
	return shell.cmd.Process.Pid
}

// Done is closed once the shell has exited and been reaped.
func (shell *Shell) Done() <-chan struct{} {
	return shell.done
}

// Err returns the shell's exit error, nil for a zero exit status. It
// is only meaningful after Done is closed.
func (shell *Shell) Err() error {
	<-shell.done
	return shell.err
}

// Terminate sends SIGHUP to the shell's process group, as a terminal
// hangup would, and waits for the shell to exit. If it is still running
// after grace, the group is killed. Terminate returns once the shell
// has been reaped; the error reports a shell that had to be killed.
func (shell *Shell) Terminate(clk clock.Clock, grace time.Duration) error {
	select {
	case <-shell.done:
		return nil
	default:
	}

	group := -shell.Pid()
	if err := syscall.Kill(group, syscall.SIGHUP); err != nil && !errors.Is(err, syscall.ESRCH) {
		shell.logger.Warn("sending SIGHUP to shell", "error", err)
	}

	select {
	case <-shell.done:
		return nil
	case <-clk.After(grace):
	}

	if err := syscall.Kill(group, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		shell.logger.Warn("sending SIGKILL to shell", "error", err)
	}
	<-shell.done
	return fmt.Errorf("shell %d ignored SIGHUP for %s and was killed", shell.Pid(), grace)
}

// isNormalShellExit reports whether err describes an ordinary end of
// an interactive shell: any exit status, or death by SIGHUP.
func isNormalShellExit(err error) bool {
	if err == nil {
		return true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return status.Exited() || (status.Signaled() && status.Signal() == syscall.SIGHUP)
}
