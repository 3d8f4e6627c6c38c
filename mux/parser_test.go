// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"bytes"
	"math/rand/v2"
	"testing"
)

// parseAll feeds data to parser and returns every emitted frame.
func parseAll(parser *Parser, data []byte) []Frame {
	var frames []Frame
	parser.Parse(data, func(frame Frame) {
		frames = append(frames, frame)
	})
	return frames
}

func onlyIDs(ids ...byte) func(byte) bool {
	return func(id byte) bool {
		return bytes.IndexByte(ids, id) >= 0
	}
}

func TestParserScenarios(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		known func(byte) bool
		max   int
		input string
		want  []Frame
	}{
		{
			name:  "single frame",
			input: "<apotap111>14142\n",
			want:  []Frame{{'1', []byte("AB")}},
		},
		{
			name:  "leading garbage line",
			input: "garbage\n<apotap111>24142\n",
			want:  []Frame{{'2', []byte("AB")}},
		},
		{
			name:  "garbage without terminator swallows the frame",
			input: "garbage<apotap111>24142\n<apotap111>143\n",
			want:  []Frame{{'1', []byte("C")}},
		},
		{
			name:  "empty payload",
			input: "<apotap111>1\n",
			want:  []Frame{{'1', []byte{}}},
		},
		{
			name:  "carriage return before terminator",
			input: "<apotap111>14142\r\n",
			want:  []Frame{{'1', []byte("AB")}},
		},
		{
			name:  "uppercase hex",
			input: "<apotap111>1FFAB\n",
			want:  []Frame{{'1', []byte{0xff, 0xab}}},
		},
		{
			name:  "odd hex length dropped",
			input: "<apotap111>1414\n<apotap111>144\n",
			want:  []Frame{{'1', []byte("D")}},
		},
		{
			name:  "non hex digit dropped",
			input: "<apotap111>1zz\n<apotap111>145\n",
			want:  []Frame{{'1', []byte("E")}},
		},
		{
			name:  "unknown channel dropped",
			known: onlyIDs('0', '1'),
			input: "<apotap111>24142\n<apotap111>146\n",
			want:  []Frame{{'1', []byte("F")}},
		},
		{
			name:  "terminator in place of channel id",
			input: "<apotap111>\n<apotap111>1ff\n",
			want:  []Frame{{'1', []byte{0xff}}},
		},
		{
			name:  "partial delimiter then terminator",
			input: "<apota\n<apotap111>130\n",
			want:  []Frame{{'1', []byte("0")}},
		},
		{
			name:  "payload at limit",
			max:   4,
			input: "<apotap111>14142\n",
			want:  []Frame{{'1', []byte("AB")}},
		},
		{
			name:  "payload over limit dropped",
			max:   4,
			input: "<apotap111>1414243\n<apotap111>131\n",
			want:  []Frame{{'1', []byte("1")}},
		},
		{
			name:  "back to back frames",
			input: "<apotap111>161\n<apotap111>262\n<apotap111>163\n",
			want:  []Frame{{'1', []byte("a")}, {'2', []byte("b")}, {'1', []byte("c")}},
		},
		{
			name:  "noise only",
			input: "\n\n<<<apotap\nhello world\n",
			want:  nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := parseAll(NewParser(test.known, test.max), []byte(test.input))
			if len(got) != len(test.want) {
				t.Fatalf("got %d frames %v, want %d %v", len(got), got, len(test.want), test.want)
			}
			for index := range got {
				if got[index].ID != test.want[index].ID || !bytes.Equal(got[index].Payload, test.want[index].Payload) {
					t.Errorf("frame %d = %q %q, want %q %q", index,
						got[index].ID, got[index].Payload, test.want[index].ID, test.want[index].Payload)
				}
			}
		})
	}
}

func TestParserRoundTrip(t *testing.T) {
	t.Parallel()
	payload := make([]byte, 256)
	for index := range payload {
		payload[index] = byte(index)
	}

	for id := byte('!'); id < 0x7f; id++ {
		parser := NewParser(nil, 0)
		frames := parseAll(parser, Encode(id, payload))
		if len(frames) != 1 {
			t.Fatalf("id %q: got %d frames, want 1", id, len(frames))
		}
		if frames[0].ID != id || !bytes.Equal(frames[0].Payload, payload) {
			t.Fatalf("id %q: round trip mismatch", id)
		}
	}
}

func TestParserUnboundedPayload(t *testing.T) {
	t.Parallel()
	payload := bytes.Repeat([]byte{0x5a, 0x00, 0xff}, 30000)
	frame := Encode('2', payload)

	if frames := parseAll(NewParser(nil, 0), frame); len(frames) != 0 {
		t.Fatalf("default limit: got %d frames for a %d-byte payload, want 0", len(frames), len(payload))
	}

	frames := parseAll(NewParser(nil, -1), frame)
	if len(frames) != 1 {
		t.Fatalf("no limit: got %d frames, want 1", len(frames))
	}
	if frames[0].ID != '2' || !bytes.Equal(frames[0].Payload, payload) {
		t.Fatal("no limit: round trip mismatch")
	}
}

func TestParserByteAtATimeMatchesBulk(t *testing.T) {
	t.Parallel()
	var stream []byte
	stream = append(stream, "line noise\n"...)
	stream = AppendFrame(stream, '1', []byte("first"))
	stream = append(stream, "<apotap1"...)
	stream = append(stream, '\n')
	stream = AppendFrame(stream, '2', []byte{0, 1, 2, '\n'})
	stream = AppendFrame(stream, '1', nil)

	bulk := parseAll(NewParser(nil, 0), stream)

	single := NewParser(nil, 0)
	var stepped []Frame
	for _, b := range stream {
		if frame, ok := single.Feed(b); ok {
			stepped = append(stepped, frame)
		}
	}

	if len(bulk) != 3 || len(stepped) != len(bulk) {
		t.Fatalf("bulk produced %d frames, stepped %d, want 3", len(bulk), len(stepped))
	}
	for index := range bulk {
		if bulk[index].ID != stepped[index].ID || !bytes.Equal(bulk[index].Payload, stepped[index].Payload) {
			t.Errorf("frame %d differs: bulk %q, stepped %q", index, bulk[index].Payload, stepped[index].Payload)
		}
	}
}

func TestParserPayloadIsFresh(t *testing.T) {
	t.Parallel()
	parser := NewParser(nil, 0)
	frames := parseAll(parser, []byte("<apotap111>14142\n<apotap111>14344\n"))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	frames[1].Payload[0] = 'x'
	if string(frames[0].Payload) != "AB" {
		t.Fatalf("first payload changed to %q after mutating the second", frames[0].Payload)
	}
}

// TestParserResynchronizes checks that whatever noise precedes it, a
// terminator followed by a well-formed frame always yields that frame.
func TestParserResynchronizes(t *testing.T) {
	t.Parallel()
	random := rand.New(rand.NewPCG(1, 2))
	alphabet := []byte("<apotap111>0123456789abcdef\n\r xyz")
	want := []byte("resync")

	for iteration := 0; iteration < 500; iteration++ {
		noise := make([]byte, random.IntN(200))
		for index := range noise {
			if random.IntN(4) == 0 {
				noise[index] = byte(random.IntN(256))
			} else {
				noise[index] = alphabet[random.IntN(len(alphabet))]
			}
		}

		var stream []byte
		stream = append(stream, noise...)
		stream = append(stream, Terminator)
		stream = AppendFrame(stream, '7', want)

		frames := parseAll(NewParser(nil, 64), stream)
		if len(frames) == 0 {
			t.Fatalf("iteration %d: no frames from %q", iteration, stream)
		}
		last := frames[len(frames)-1]
		if last.ID != '7' || !bytes.Equal(last.Payload, want) {
			t.Fatalf("iteration %d: last frame %q %q, want '7' %q (stream %q)",
				iteration, last.ID, last.Payload, want, stream)
		}
	}
}

func TestParserStats(t *testing.T) {
	t.Parallel()
	parser := NewParser(onlyIDs('1', '2'), 0)
	input := "garbage\n" + // 8 bytes of noise
		"<apotap111>24142\n" + // decoded
		"<apotap111>9ab\n" + // unknown id: dropped, 15 bytes
		"<apotap111>1zz\n" // malformed: dropped, 15 bytes
	frames := parseAll(parser, []byte(input))
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}

	stats := parser.Stats()
	if stats.FramesDecoded != 1 {
		t.Errorf("FramesDecoded = %d, want 1", stats.FramesDecoded)
	}
	if stats.FramesDropped != 2 {
		t.Errorf("FramesDropped = %d, want 2", stats.FramesDropped)
	}
	if stats.BytesDiscarded != 8+15+15 {
		t.Errorf("BytesDiscarded = %d, want %d", stats.BytesDiscarded, 8+15+15)
	}
}
