// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/demul/demul/cmd/demul/cli"
	"github.com/demul/demul/lib/clock"
	"github.com/demul/demul/lib/config"
	"github.com/demul/demul/lib/process"
	"github.com/demul/demul/lib/terminal"
	"github.com/demul/demul/lib/trace"
	"github.com/demul/demul/mux"
	"github.com/demul/demul/session"
)

// loadConfig reads the configuration file, applies the command-line
// overrides, and validates the result.
func (f *flags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Validation("%w", err)
	}

	if f.shell != "" {
		cfg.Shell = f.shell
	}
	if f.binaryChannels != 0 {
		cfg.BinaryChannels = f.binaryChannels
	}
	if f.baud != 0 {
		cfg.Client.Baud = f.baud
	}
	if f.tracePath != "" {
		cfg.Trace.Path = f.tracePath
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err)
	}
	if cfg.Client.Baud != 0 && !terminal.ValidSpeed(cfg.Client.Baud) {
		return nil, cli.Validation("unsupported baud rate %d", cfg.Client.Baud)
	}
	return cfg, nil
}

// sessionOptions translates the configuration into session options for
// the selected role.
func sessionOptions(cfg *config.Config, selected mode, guard *terminal.Guard, logger *slog.Logger) session.Options {
	return session.Options{
		Shell:          strings.Fields(cfg.Shell),
		BinaryChannels: cfg.BinaryChannels,
		NoPost:         selected.noPost || cfg.Server.NoPost,
		DisableEcho:    cfg.Server.DisableEcho,
		RawTransport:   cfg.Client.RawTransport,
		Baud:           cfg.Client.Baud,
		Guard:          guard,
		Clock:          clock.Real(),
		Logger:         logger,
	}
}

// run sets up one end of the link and serves it until the transport
// fails. Terminal attributes changed along the way are restored by an
// exit hook, so they come back on a signal as well as on return.
func (f *flags) run(selected mode) error {
	if f.version {
		return printVersion()
	}

	cfg, err := f.loadConfig()
	if err != nil {
		return err
	}
	defaultLevel := slog.LevelInfo
	if selected.server {
		defaultLevel = slog.LevelWarn
	}
	level, err := cfg.Level(defaultLevel)
	if err != nil {
		return cli.Validation("%w", err)
	}
	logger := cli.NewCommandLogger(level)

	guard := &terminal.Guard{Logger: logger}
	process.AtExit(guard.Restore)
	stopSignals := process.HandleSignals()
	defer stopSignals()

	options := sessionOptions(cfg, selected, guard, logger)
	var link *session.Session
	var announcements io.Writer
	if selected.server {
		link, err = session.NewServer(options, os.Stdin, os.Stdout)
		// Standard output is the transport.
		announcements = os.Stderr
	} else {
		link, err = session.NewClient(options, selected.inPath, selected.outPath)
		announcements = os.Stdout
	}
	if err != nil {
		return cli.Internal("setting up link: %w", err)
	}
	closeLink := sync.OnceValue(link.Close)
	process.AtExit(func() { closeLink() })

	engine := &mux.Engine{
		Registry:      link.Registry,
		ReadChunkSize: cfg.ReadChunkSize,
		MaxPayloadHex: cfg.MaxPayloadHex,
		Logger:        logger,
	}

	closeTrace := func() error { return nil }
	if cfg.Trace.Path != "" {
		compression, err := trace.ParseCompression(string(cfg.Trace.Compression))
		if err != nil {
			closeLink()
			return cli.Validation("%w", err)
		}
		recorder, err := trace.Create(cfg.Trace.Path, compression, clock.Real(), logger)
		if err != nil {
			closeLink()
			return cli.Internal("%w", err)
		}
		closeTrace = sync.OnceValue(recorder.Close)
		process.AtExit(func() { closeTrace() })
		engine.Observer = recorder
		logger.Info("tracing frames", "path", cfg.Trace.Path, "compression", compression)
	}

	if err := link.Announce(announcements); err != nil {
		closeTrace()
		closeLink()
		return cli.Internal("announcing devices: %w", err)
	}

	runErr := engine.Run()
	stats := engine.Stats()
	logger.Info("link closed",
		"frames_sent", stats.FramesSent,
		"frames_received", stats.FramesReceived,
		"frames_dropped", stats.Parser.FramesDropped,
	)

	var errs []error
	if err := closeTrace(); err != nil {
		errs = append(errs, fmt.Errorf("closing trace: %w", err))
	}
	if err := closeLink(); err != nil {
		errs = append(errs, err)
	}
	if runErr != nil {
		if errors.Is(runErr, mux.ErrTransportFailed) {
			return cli.Transient("%w", errors.Join(append([]error{runErr}, errs...)...))
		}
		return cli.Internal("%w", errors.Join(append([]error{runErr}, errs...)...))
	}
	if len(errs) > 0 {
		return cli.Internal("%w", errors.Join(errs...))
	}
	return nil
}
