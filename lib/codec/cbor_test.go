// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

type sampleRecord struct {
	Time    time.Time `cbor:"1,keyasint"`
	Channel uint8     `cbor:"2,keyasint"`
	Payload []byte    `cbor:"3,keyasint,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRecord{
		Time:    time.Date(2026, 10, 17, 12, 0, 0, 123456789, time.UTC),
		Channel: '2',
		Payload: []byte{0x00, '\n', 0xff},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Time.Equal(original.Time) {
		t.Errorf("time lost precision: got %v, want %v", decoded.Time, original.Time)
	}
	if decoded.Channel != original.Channel || !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	record := sampleRecord{Time: time.Unix(0, 42).UTC(), Channel: '1', Payload: []byte("x")}

	first, err := Marshal(record)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	records := []sampleRecord{
		{Time: time.Unix(1, 0).UTC(), Channel: '1', Payload: []byte("ls\n")},
		{Time: time.Unix(2, 0).UTC(), Channel: '2', Payload: []byte{0xde, 0xad}},
		{Time: time.Unix(3, 0).UTC(), Channel: '1'},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", i, err)
		}
		if !got.Time.Equal(want.Time) || got.Channel != want.Channel || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("record %d: got %+v, want %+v", i, got, want)
		}
	}

	var extra sampleRecord
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("Decode past the end = %v, want io.EOF", err)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var record sampleRecord
	if err := Unmarshal([]byte{0xff, 0xfe}, &record); err == nil {
		t.Error("expected error for invalid CBOR")
	}
}
