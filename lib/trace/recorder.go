// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/demul/demul/lib/clock"
	"github.com/demul/demul/lib/codec"
)

// Recorder appends a Record for every frame it observes. It is safe
// for concurrent use, though the engine calls it from one goroutine.
//
// Recording never interrupts the multiplexer: the first write error is
// logged, kept for Err and Close, and later records are discarded.
type Recorder struct {
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	buffered   *bufio.Writer
	compressor io.WriteCloser
	encoder    *codec.Encoder
	file       io.Closer
	records    uint64
	err        error
	closed     bool
}

// Create creates (or truncates) the trace file at path and returns a
// recorder writing to it.
func Create(path string, compression Compression, clk clock.Clock, logger *slog.Logger) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating trace file: %w", err)
	}
	recorder, err := NewRecorder(file, compression, clk, logger)
	if err != nil {
		file.Close()
		return nil, err
	}
	recorder.file = file
	return recorder, nil
}

// NewRecorder writes the trace header to w and returns a recorder
// appending records to it. Close flushes the stream; it closes w only
// when the recorder came from Create.
func NewRecorder(w io.Writer, compression Compression, clk clock.Clock, logger *slog.Logger) (*Recorder, error) {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	buffered := bufio.NewWriter(w)
	header := append([]byte(magic), formatVersion, byte(compression))
	if _, err := buffered.Write(header); err != nil {
		return nil, fmt.Errorf("writing trace header: %w", err)
	}
	stream, err := compressor(buffered, compression)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		clock:      clk,
		logger:     logger,
		buffered:   buffered,
		compressor: stream,
		encoder:    codec.NewEncoder(stream),
	}, nil
}

// FrameSent records a frame written to the transport.
func (recorder *Recorder) FrameSent(id byte, payload []byte) {
	recorder.record(Sent, id, payload)
}

// FrameReceived records a frame delivered to a local channel.
func (recorder *Recorder) FrameReceived(id byte, payload []byte) {
	recorder.record(Received, id, payload)
}

func (recorder *Recorder) record(direction Direction, id byte, payload []byte) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.closed || recorder.err != nil {
		return
	}
	err := recorder.encoder.Encode(Record{
		Time:      recorder.clock.Now(),
		Direction: direction,
		Channel:   id,
		Payload:   payload,
	})
	if err != nil {
		recorder.err = fmt.Errorf("writing trace record: %w", err)
		recorder.logger.Warn("trace disabled after write failure", "error", err)
		return
	}
	recorder.records++
}

// Records returns the number of records written so far.
func (recorder *Recorder) Records() uint64 {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.records
}

// Err returns the error that stopped recording, if any.
func (recorder *Recorder) Err() error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return recorder.err
}

// Close flushes the compressed stream and closes the file opened by
// Create. It returns the first error seen while recording or closing.
// Calls after the first return nil.
func (recorder *Recorder) Close() error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.closed {
		return nil
	}
	recorder.closed = true

	errs := []error{recorder.err}
	if err := recorder.compressor.Close(); err != nil {
		errs = append(errs, fmt.Errorf("flushing trace compression: %w", err))
	}
	if err := recorder.buffered.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flushing trace: %w", err))
	}
	if recorder.file != nil {
		if err := recorder.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing trace file: %w", err))
		}
	}
	return errors.Join(errs...)
}
