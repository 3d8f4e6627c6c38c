// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import "encoding/hex"

// Delimiter starts every frame on the wire.
const Delimiter = "<apotap111>"

// Terminator ends every frame. Hex digits never include it, so a payload
// needs no escaping.
const Terminator byte = '\n'

// FrameLength returns the encoded size of a frame carrying payloadLength
// bytes.
func FrameLength(payloadLength int) int {
	return len(Delimiter) + 1 + hex.EncodedLen(payloadLength) + 1
}

// Encode returns the frame carrying payload to channel id.
func Encode(id byte, payload []byte) []byte {
	return AppendFrame(make([]byte, 0, FrameLength(len(payload))), id, payload)
}

// AppendFrame appends the frame carrying payload to channel id to dst
// and returns the extended slice.
func AppendFrame(dst []byte, id byte, payload []byte) []byte {
	dst = append(dst, Delimiter...)
	dst = append(dst, id)
	dst = hex.AppendEncode(dst, payload)
	return append(dst, Terminator)
}
