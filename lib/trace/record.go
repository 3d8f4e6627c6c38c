// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"errors"
	"fmt"
	"time"
)

// magic starts every trace file.
const magic = "DEMULTRC"

// formatVersion is the only header version this package writes or
// reads.
const formatVersion = 1

// headerLength is magic, version, and compression.
const headerLength = len(magic) + 2

// ErrNotTrace is returned by NewReader when the input does not start
// with a trace header.
var ErrNotTrace = errors.New("trace: not a demul trace file")

// Direction says which way a frame crossed the transport.
type Direction uint8

const (
	// Sent frames were read from a local channel and written to the
	// transport.
	Sent Direction = 1

	// Received frames were decoded from the transport and delivered
	// to a local channel.
	Received Direction = 2
)

func (direction Direction) String() string {
	switch direction {
	case Sent:
		return "tx"
	case Received:
		return "rx"
	default:
		return fmt.Sprintf("direction(%d)", uint8(direction))
	}
}

// Record is one traced frame.
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Channel   byte      `cbor:"3,keyasint"`
	Payload   []byte    `cbor:"4,keyasint,omitempty"`
}
