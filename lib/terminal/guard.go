// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when an attribute change is requested for
// a descriptor that is not a terminal.
var ErrNotTerminal = errors.New("terminal: not a terminal")

// Guard records the original attributes of every terminal it modifies.
// The zero value is ready to use and safe for concurrent use.
type Guard struct {
	// Logger receives restore failures. Nil discards them.
	Logger *slog.Logger

	mu    sync.Mutex
	saved []savedState
}

type savedState struct {
	fd    int
	name  string
	state *term.State
}

// Save records the current attributes of fd unless they were already
// recorded. name labels the descriptor in log messages.
func (g *Guard) Save(fd int, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, entry := range g.saved {
		if entry.fd == fd {
			return nil
		}
	}
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%w: %s (fd %d)", ErrNotTerminal, name, fd)
	}
	state, err := term.GetState(fd)
	if err != nil {
		return fmt.Errorf("saving attributes of %s: %w", name, err)
	}
	g.saved = append(g.saved, savedState{fd: fd, name: name, state: state})
	return nil
}

// Saved reports whether fd's attributes have been recorded and not yet
// restored.
func (g *Guard) Saved(fd int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, entry := range g.saved {
		if entry.fd == fd {
			return true
		}
	}
	return false
}

// Restore puts back the recorded attributes of every saved descriptor,
// most recently saved first, and forgets them. A second call does
// nothing. Failures are logged rather than returned: Restore runs on
// the way out and there is nobody left to handle an error.
func (g *Guard) Restore() {
	g.mu.Lock()
	saved := g.saved
	g.saved = nil
	g.mu.Unlock()

	for index := len(saved) - 1; index >= 0; index-- {
		entry := saved[index]
		if err := term.Restore(entry.fd, entry.state); err != nil {
			g.logger().Warn("restoring terminal attributes", "device", entry.name, "error", err)
		}
	}
}

// DisableEcho saves fd with the guard and turns off its echo. The
// server applies it to its controlling terminal so frames arriving from
// the peer are not sent straight back.
func (g *Guard) DisableEcho(fd int, name string) error {
	return g.apply(fd, name, DisableEcho)
}

// DisableOutputProcessing saves fd with the guard and clears OPOST.
func (g *Guard) DisableOutputProcessing(fd int, name string) error {
	return g.apply(fd, name, DisableOutputProcessing)
}

// MakeBinary saves fd with the guard and configures it for binary
// traffic.
func (g *Guard) MakeBinary(fd int, name string) error {
	return g.apply(fd, name, MakeBinary)
}

// MakeRaw saves fd with the guard and puts it in raw mode.
func (g *Guard) MakeRaw(fd int, name string) error {
	return g.apply(fd, name, MakeRaw)
}

// SetSpeed saves fd with the guard and sets its line speed.
func (g *Guard) SetSpeed(fd int, name string, baud int) error {
	return g.apply(fd, name, func(fd int) error {
		return SetSpeed(fd, baud)
	})
}

func (g *Guard) apply(fd int, name string, change func(fd int) error) error {
	if err := g.Save(fd, name); err != nil {
		return err
	}
	if err := change(fd); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (g *Guard) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return g.Logger
}
