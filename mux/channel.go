// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"fmt"
	"io"
)

// CommonID is the id of the common channel, the one bound to the shared
// transport. It is fixed by the protocol.
const CommonID byte = '0'

// Role tags a channel with what it is used for. The engine only treats
// RoleCommon specially; the other roles exist for logging.
type Role uint8

const (
	// RoleCommon is the shared transport carrying framed traffic.
	RoleCommon Role = iota

	// RoleInteractive carries a shell session.
	RoleInteractive

	// RoleBinary carries raw bytes for an external tool such as a
	// debugger attached to a pseudo-terminal.
	RoleBinary
)

func (role Role) String() string {
	switch role {
	case RoleCommon:
		return "common"
	case RoleInteractive:
		return "interactive"
	case RoleBinary:
		return "binary"
	default:
		return fmt.Sprintf("role(%d)", uint8(role))
	}
}

// InputHandle is a pollable source of bytes. *os.File satisfies it.
type InputHandle interface {
	Fd() uintptr
}

// Channel is one logical byte stream. Input and Output may refer to the
// same file when the underlying device is full duplex.
type Channel struct {
	// ID names the channel on the wire. It must be a printable,
	// non-newline byte and unique within a Registry.
	ID byte

	Role Role

	// Input is polled for readiness and read by the engine.
	Input InputHandle

	// Output receives every payload addressed to this channel, one
	// Write per decoded frame.
	Output io.Writer

	// Name is a diagnostic label, usually the device path.
	Name string

	// inputFD is the input descriptor as it was when the channel was
	// registered. An *os.File reports -1 once closed, so the registry
	// and the poll set key on this copy.
	inputFD int
}

// fd returns the descriptor the channel was registered under.
func (channel *Channel) fd() int {
	return channel.inputFD
}

func (channel *Channel) String() string {
	if channel.Name != "" {
		return fmt.Sprintf("%c(%s %s)", channel.ID, channel.Role, channel.Name)
	}
	return fmt.Sprintf("%c(%s)", channel.ID, channel.Role)
}

// validID reports whether id can appear on the wire as a channel id.
// Newline is the frame terminator and non-printable bytes would not
// survive a text-mode link.
func validID(id byte) bool {
	return id > ' ' && id < 0x7f
}
