// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// modifyTermios applies change to a copy of fd's current termios and
// installs the result immediately.
func modifyTermios(fd int, change func(*unix.Termios)) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("reading terminal attributes: %w", err)
	}
	change(termios)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("setting terminal attributes: %w", err)
	}
	return nil
}

// DisableEcho stops the terminal on fd from echoing input.
func DisableEcho(fd int) error {
	return modifyTermios(fd, func(termios *unix.Termios) {
		termios.Lflag &^= unix.ECHO
	})
}

// DisableOutputProcessing clears OPOST on fd so output bytes pass
// through unchanged, in particular without newline translation.
func DisableOutputProcessing(fd int) error {
	return modifyTermios(fd, func(termios *unix.Termios) {
		termios.Oflag &^= unix.OPOST
	})
}

// MakeBinary configures fd for a byte-transparent tool such as a
// debugger: no echo, no line buffering, no output processing. Signal
// characters and input translation are left alone.
func MakeBinary(fd int) error {
	return modifyTermios(fd, func(termios *unix.Termios) {
		termios.Lflag &^= unix.ECHO | unix.ICANON
		termios.Oflag &^= unix.OPOST
	})
}

// MakeRaw puts fd in raw mode: no echo, no line editing, no signal
// characters, no input or output translation.
func MakeRaw(fd int) error {
	_, err := term.MakeRaw(fd)
	return err
}

// SetSpeed sets the input and output line speed of fd in bits per
// second. Only the standard termios rates are accepted.
func SetSpeed(fd int, baud int) error {
	speed, ok := speeds[baud]
	if !ok {
		return fmt.Errorf("unsupported line speed %d", baud)
	}
	return modifyTermios(fd, func(termios *unix.Termios) {
		termios.Cflag &^= unix.CBAUD
		termios.Cflag |= speed
		termios.Ispeed = speed
		termios.Ospeed = speed
	})
}

// ValidSpeed reports whether baud is a rate SetSpeed accepts.
func ValidSpeed(baud int) bool {
	_, ok := speeds[baud]
	return ok
}

var speeds = map[int]uint32{
	1200:    unix.B1200,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	3000000: unix.B3000000,
	4000000: unix.B4000000,
}
