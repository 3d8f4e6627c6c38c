// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"bytes"
	"encoding/hex"
)

// DefaultMaxPayloadHex bounds the hex digits a single frame may carry:
// twice the default read chunk, the largest frame a default peer sends.
const DefaultMaxPayloadHex = 2 * DefaultReadChunkSize

// parserState is the position of the parser within the frame grammar.
type parserState uint8

const (
	// stateIdle discards bytes until the next terminator.
	stateIdle parserState = iota

	// stateScanning matches Delimiter one byte at a time; Parser.matched
	// holds the number of bytes matched so far.
	stateScanning

	// stateSelecting expects the channel id byte.
	stateSelecting

	// stateAccumulating collects hex digits for Parser.channel until the
	// terminator.
	stateAccumulating
)

func (state parserState) String() string {
	switch state {
	case stateIdle:
		return "idle"
	case stateScanning:
		return "scanning"
	case stateSelecting:
		return "selecting"
	case stateAccumulating:
		return "accumulating"
	default:
		return "unknown"
	}
}

// Frame is one decoded frame: a payload addressed to a channel.
type Frame struct {
	ID      byte
	Payload []byte
}

// ParserStats counts what the parser did with its input. The counters
// are diagnostic only; noise never changes what the parser emits.
type ParserStats struct {
	// FramesDecoded is the number of frames emitted.
	FramesDecoded uint64

	// FramesDropped is the number of frames that matched the full
	// delimiter but were then abandoned: unknown channel id, malformed
	// hex, or a payload longer than the configured maximum.
	FramesDropped uint64

	// BytesDiscarded is the number of input bytes that did not end up
	// in an emitted frame, including the bytes of dropped frames.
	BytesDiscarded uint64
}

// Parser recognizes frames in the inbound byte stream of the common
// channel. It never fails: any byte sequence that does not fit the
// grammar is discarded up to the next terminator and scanning resumes
// from there.
type Parser struct {
	known         func(id byte) bool
	maxPayloadHex int

	state     parserState
	matched   int
	channel   byte
	hexBuffer []byte

	// candidate counts the bytes consumed by the frame currently being
	// recognized, so they can be charged to BytesDiscarded if the frame
	// is abandoned.
	candidate uint64

	stats ParserStats
}

// NewParser returns a parser that accepts frames addressed to any id for
// which known returns true; a nil known accepts every id that is valid on
// the wire. maxPayloadHex bounds the hex digits of one frame; zero
// selects DefaultMaxPayloadHex and a negative value removes the bound.
func NewParser(known func(id byte) bool, maxPayloadHex int) *Parser {
	if known == nil {
		known = validID
	}
	if maxPayloadHex == 0 {
		maxPayloadHex = DefaultMaxPayloadHex
	}
	return &Parser{
		known:         known,
		maxPayloadHex: maxPayloadHex,
		state:         stateScanning,
	}
}

// Feed consumes one byte. When the byte completes a well-formed frame
// the frame is returned with ok set. The returned payload is a fresh
// slice owned by the caller.
func (parser *Parser) Feed(b byte) (frame Frame, ok bool) {
	switch parser.state {
	case stateIdle:
		parser.stats.BytesDiscarded++
		if b == Terminator {
			parser.rescan()
		}

	case stateScanning:
		parser.candidate++
		switch {
		case b == Terminator:
			parser.discard()
			parser.rescan()
		case b != Delimiter[parser.matched]:
			parser.discard()
			parser.state = stateIdle
		default:
			parser.matched++
			if parser.matched == len(Delimiter) {
				parser.state = stateSelecting
			}
		}

	case stateSelecting:
		parser.candidate++
		switch {
		case b == Terminator:
			parser.drop()
			parser.rescan()
		case !parser.known(b):
			parser.drop()
			parser.state = stateIdle
		default:
			parser.channel = b
			parser.hexBuffer = parser.hexBuffer[:0]
			parser.state = stateAccumulating
		}

	case stateAccumulating:
		parser.candidate++
		if b != Terminator {
			if parser.maxPayloadHex > 0 && len(parser.hexBuffer) >= parser.maxPayloadHex {
				parser.drop()
				parser.state = stateIdle
				return Frame{}, false
			}
			parser.hexBuffer = append(parser.hexBuffer, b)
			return Frame{}, false
		}

		digits := bytes.TrimSpace(parser.hexBuffer)
		payload := make([]byte, hex.DecodedLen(len(digits)))
		if _, err := hex.Decode(payload, digits); err != nil {
			parser.drop()
			parser.rescan()
			return Frame{}, false
		}
		frame = Frame{ID: parser.channel, Payload: payload}
		parser.stats.FramesDecoded++
		parser.candidate = 0
		parser.rescan()
		return frame, true
	}
	return Frame{}, false
}

// Parse feeds every byte of data and calls emit for each completed
// frame, in order.
func (parser *Parser) Parse(data []byte, emit func(Frame)) {
	for _, b := range data {
		if frame, ok := parser.Feed(b); ok {
			emit(frame)
		}
	}
}

// Stats returns the parser's counters.
func (parser *Parser) Stats() ParserStats {
	return parser.stats
}

// rescan starts matching a fresh delimiter.
func (parser *Parser) rescan() {
	parser.state = stateScanning
	parser.matched = 0
	parser.candidate = 0
	parser.hexBuffer = parser.hexBuffer[:0]
}

// discard charges the bytes of the abandoned attempt to BytesDiscarded.
func (parser *Parser) discard() {
	parser.stats.BytesDiscarded += parser.candidate
	parser.candidate = 0
	parser.matched = 0
}

// drop abandons a frame whose delimiter matched completely.
func (parser *Parser) drop() {
	parser.stats.FramesDropped++
	parser.discard()
}
