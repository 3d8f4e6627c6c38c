// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import "errors"

var (
	// ErrTransportFailed is returned by Engine.Run when the common
	// channel hangs up, reports an error condition, or cannot be
	// written. No channel can make progress without the transport, so
	// this is always fatal.
	ErrTransportFailed = errors.New("mux: common channel failed")

	// ErrCommonChannelMissing is returned by Engine.Run when the
	// registry still holds channels but the common channel is gone.
	ErrCommonChannelMissing = errors.New("mux: common channel not registered")

	// ErrDuplicateChannel is returned by Registry.Add when the id or the
	// input descriptor is already registered.
	ErrDuplicateChannel = errors.New("mux: duplicate channel")

	// ErrInvalidChannel is returned by Registry.Add for a channel with a
	// nil input or output or an id that cannot be sent on the wire.
	ErrInvalidChannel = errors.New("mux: invalid channel")
)
