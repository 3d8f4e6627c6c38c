// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/demul/demul/lib/codec"
)

// Reader reads the records of a trace in order.
type Reader struct {
	// Compression is the compression named in the file header.
	Compression Compression

	decoder *codec.Decoder
	release func()
	file    io.Closer
}

// Open opens the trace file at path.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	reader.file = file
	return reader, nil
}

// NewReader reads the trace header from r and returns a reader for the
// records that follow.
func NewReader(r io.Reader) (*Reader, error) {
	buffered := bufio.NewReader(r)
	header := make([]byte, headerLength)
	if _, err := io.ReadFull(buffered, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrNotTrace
		}
		return nil, fmt.Errorf("reading trace header: %w", err)
	}
	if string(header[:len(magic)]) != magic {
		return nil, ErrNotTrace
	}
	if version := header[len(magic)]; version != formatVersion {
		return nil, fmt.Errorf("unsupported trace format version %d", version)
	}

	compression := Compression(header[len(magic)+1])
	stream, release, err := decompressor(buffered, compression)
	if err != nil {
		return nil, err
	}
	return &Reader{
		Compression: compression,
		decoder:     codec.NewDecoder(stream),
		release:     release,
	}, nil
}

// Next returns the next record. It returns io.EOF after the last
// record, and io.ErrUnexpectedEOF (possibly wrapped) for a trace cut
// off mid-record, which is what a recorder that was never closed
// leaves behind.
func (reader *Reader) Next() (Record, error) {
	var record Record
	if err := reader.decoder.Decode(&record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// Close releases the decompressor and closes the file opened by Open.
func (reader *Reader) Close() error {
	reader.release()
	if reader.file != nil {
		return reader.file.Close()
	}
	return nil
}
