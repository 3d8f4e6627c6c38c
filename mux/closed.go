// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"errors"
	"io"
	"syscall"
)

// errHangup stands in for a read error when poll reports a hangup or
// error condition without any readable data.
var errHangup = errors.New("hangup")

// isExpectedClose reports whether err is the normal way a channel ends:
// EOF, a poll hangup, or EIO, which is what a pseudo-terminal master
// returns once every slave descriptor is closed. Anything else is logged
// louder but handled the same way.
func isExpectedClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, errHangup) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EIO || errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
