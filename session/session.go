// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/demul/demul/lib/clock"
	"github.com/demul/demul/lib/terminal"
	"github.com/demul/demul/mux"
)

// InteractiveID is the id of the channel carrying the shell.
const InteractiveID byte = '1'

// FirstBinaryID is the id of the first binary channel. Further binary
// channels take the following ids.
const FirstBinaryID byte = '2'

// Options configures either end of a link.
type Options struct {
	// Shell is the command line of the server's shell. Only the server
	// uses it.
	Shell []string

	// BinaryChannels is the number of binary channels. Both ends must
	// use the same number. Zero means one.
	BinaryChannels int

	// NoPost clears output processing on the shell's terminal.
	NoPost bool

	// DisableEcho turns off echo on the server's standard input when it
	// is a terminal.
	DisableEcho bool

	// RawTransport puts the client's transport device in raw mode when
	// it is a terminal.
	RawTransport bool

	// Baud sets the client's transport line speed when it is a
	// terminal. Zero leaves it unchanged.
	Baud int

	// Guard records the attributes of inherited terminals before they
	// are changed. Required.
	Guard *terminal.Guard

	// Clock times the shell's hangup grace period. Nil selects the
	// real clock.
	Clock clock.Clock

	// ShellGrace is how long Close waits for the shell after SIGHUP.
	// Zero selects DefaultShellGrace.
	ShellGrace time.Duration

	Logger *slog.Logger
}

// Device is a local endpoint of a channel that the user or a tool
// attaches to.
type Device struct {
	ID   byte
	Role mux.Role
	Path string
}

// Session is one configured end of a link.
type Session struct {
	// Registry holds every channel of the session in the order both
	// ends register them.
	Registry *mux.Registry

	// Devices lists the pseudo-terminals tools attach to, in channel
	// id order.
	Devices []Device

	// Shell is the server's shell, nil on the client.
	Shell *Shell

	options Options
	logger  *slog.Logger
	files   []*os.File
}

func newSession(options Options) (*Session, error) {
	if options.Guard == nil {
		return nil, errors.New("session: Options.Guard is required")
	}
	if options.BinaryChannels <= 0 {
		options.BinaryChannels = 1
	}
	if int(FirstBinaryID)+options.BinaryChannels-1 >= 0x7f {
		return nil, fmt.Errorf("session: too many binary channels (%d)", options.BinaryChannels)
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.ShellGrace <= 0 {
		options.ShellGrace = DefaultShellGrace
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		Registry: mux.NewRegistry(),
		options:  options,
		logger:   logger,
	}, nil
}

// NewServer sets up the server end: stdin and stdout carry the
// transport, and the shell runs on the interactive channel.
func NewServer(options Options, stdin, stdout *os.File) (*Session, error) {
	if len(options.Shell) == 0 {
		return nil, errors.New("session: no shell configured")
	}
	session, err := newSession(options)
	if err != nil {
		return nil, err
	}

	if options.DisableEcho {
		session.disableEcho(stdin)
	}
	common := &mux.Channel{ID: mux.CommonID, Role: mux.RoleCommon, Input: stdin, Output: stdout, Name: "stdio"}
	if err := session.Registry.Add(common); err != nil {
		return nil, err
	}

	if err := session.addBinaryChannels(); err != nil {
		session.Close()
		return nil, err
	}
	if err := session.startShell(); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// NewClient sets up the client end on the transport device at
// inPath. When outPath is empty the device is opened once for reading
// and writing; otherwise inPath is opened read-only and outPath
// write-only.
func NewClient(options Options, inPath, outPath string) (*Session, error) {
	session, err := newSession(options)
	if err != nil {
		return nil, err
	}

	if err := session.openTransport(inPath, outPath); err != nil {
		session.Close()
		return nil, err
	}
	if err := session.addBinaryChannels(); err != nil {
		session.Close()
		return nil, err
	}

	master, path, err := session.openTerminal()
	if err != nil {
		session.Close()
		return nil, err
	}
	if err := session.addTerminalChannel(InteractiveID, mux.RoleInteractive, master, path); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// disableEcho turns off echo on the server's transport terminal. A
// transport that is not a terminal has no echo to disable.
func (session *Session) disableEcho(stdin *os.File) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		session.logger.Debug("standard input is not a terminal, leaving echo alone")
		return
	}
	if err := session.options.Guard.DisableEcho(fd, "standard input"); err != nil {
		session.logger.Warn("disabling echo on standard input", "error", err)
	}
}

func (session *Session) openTransport(inPath, outPath string) error {
	var input, output *os.File
	if outPath == "" {
		file, err := os.OpenFile(inPath, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("opening transport: %w", err)
		}
		session.files = append(session.files, file)
		input, output = file, file
	} else {
		in, err := os.OpenFile(inPath, os.O_RDONLY, 0)
		if err != nil {
			return fmt.Errorf("opening transport input: %w", err)
		}
		session.files = append(session.files, in)
		out, err := os.OpenFile(outPath, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("opening transport output: %w", err)
		}
		session.files = append(session.files, out)
		input, output = in, out
	}

	if err := session.configureTransport(input); err != nil {
		return err
	}
	if output != input {
		if err := session.configureTransport(output); err != nil {
			return err
		}
	}

	name := inPath
	if outPath != "" {
		name = inPath + "," + outPath
	}
	return session.Registry.Add(&mux.Channel{ID: mux.CommonID, Role: mux.RoleCommon, Input: input, Output: output, Name: name})
}

// configureTransport applies raw mode and line speed to a transport
// device that is a terminal.
func (session *Session) configureTransport(file *os.File) error {
	fd := int(file.Fd())
	if !term.IsTerminal(fd) {
		if session.options.Baud != 0 {
			session.logger.Warn("transport is not a terminal, ignoring line speed", "device", file.Name())
		}
		return nil
	}
	guard := session.options.Guard
	if session.options.RawTransport {
		if err := guard.MakeRaw(fd, file.Name()); err != nil {
			return fmt.Errorf("configuring transport: %w", err)
		}
	}
	if session.options.Baud != 0 {
		if err := guard.SetSpeed(fd, file.Name(), session.options.Baud); err != nil {
			return fmt.Errorf("configuring transport: %w", err)
		}
	}
	return nil
}

// openTerminal allocates a pseudo-terminal in binary mode and returns
// its master and slave path. The session keeps the slave open so tools
// can open and close the path without the master seeing a hangup.
func (session *Session) openTerminal() (*os.File, string, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, "", fmt.Errorf("allocating pseudo-terminal: %w", err)
	}
	session.files = append(session.files, master, slave)
	for _, file := range []*os.File{master, slave} {
		if err := terminal.MakeBinary(int(file.Fd())); err != nil {
			return nil, "", fmt.Errorf("configuring %s: %w", slave.Name(), err)
		}
	}
	return master, slave.Name(), nil
}

func (session *Session) addBinaryChannels() error {
	for index := 0; index < session.options.BinaryChannels; index++ {
		master, path, err := session.openTerminal()
		if err != nil {
			return err
		}
		if err := session.addTerminalChannel(FirstBinaryID+byte(index), mux.RoleBinary, master, path); err != nil {
			return err
		}
	}
	return nil
}

// addTerminalChannel registers master as channel id and lists path as
// the device to attach to.
func (session *Session) addTerminalChannel(id byte, role mux.Role, master *os.File, path string) error {
	channel := &mux.Channel{ID: id, Role: role, Input: master, Output: master, Name: path}
	if err := session.Registry.Add(channel); err != nil {
		return err
	}
	session.addDevice(Device{ID: id, Role: role, Path: path})
	return nil
}

func (session *Session) addDevice(device Device) {
	index := len(session.Devices)
	for index > 0 && session.Devices[index-1].ID > device.ID {
		index--
	}
	session.Devices = append(session.Devices, Device{})
	copy(session.Devices[index+1:], session.Devices[index:])
	session.Devices[index] = device
}

// startShell runs the shell on a new pseudo-terminal and registers the
// interactive channel. The parent's copy of the slave is closed once
// the shell has it, so the shell's exit hangs up the master.
func (session *Session) startShell() error {
	master, slave, err := pty.Open()
	if err != nil {
		return fmt.Errorf("allocating shell terminal: %w", err)
	}
	session.files = append(session.files, master)
	path := slave.Name()

	if session.options.NoPost {
		if err := terminal.DisableOutputProcessing(int(slave.Fd())); err != nil {
			slave.Close()
			return fmt.Errorf("configuring %s: %w", path, err)
		}
	}

	shell, err := StartShell(session.options.Shell, slave, session.logger)
	slave.Close()
	if err != nil {
		return err
	}
	session.Shell = shell

	return session.addTerminalChannel(InteractiveID, mux.RoleInteractive, master, path)
}

// Announce writes one line per device telling the user where to attach.
func (session *Session) Announce(w io.Writer) error {
	for _, device := range session.Devices {
		if device.Role == mux.RoleInteractive && session.Shell != nil {
			if _, err := fmt.Fprintf(w, "channel %c (shell, pid %d): %s\n", device.ID, session.Shell.Pid(), device.Path); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "channel %c (%s): %s\n", device.ID, device.Role, device.Path); err != nil {
			return err
		}
	}
	return nil
}

// Close hangs up the shell, waiting out its grace period, and closes
// every descriptor the session opened. Standard input and output are
// left open.
func (session *Session) Close() error {
	var errs []error
	if session.Shell != nil {
		if err := session.Shell.Terminate(session.options.Clock, session.options.ShellGrace); err != nil {
			errs = append(errs, err)
		}
	}
	for index := len(session.files) - 1; index >= 0; index-- {
		if err := session.files[index].Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	session.files = nil
	return errors.Join(errs...)
}
