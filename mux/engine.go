// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sys/unix"
)

// DefaultReadChunkSize is the most the engine reads from one descriptor
// per readiness report.
const DefaultReadChunkSize = 64 * 1024

// exceptionalEvents are the poll revents bits that mean the descriptor
// has hung up or failed.
const exceptionalEvents = unix.POLLERR | unix.POLLHUP | unix.POLLNVAL

// Observer is notified of every frame the engine sends or delivers.
// Calls happen on the engine goroutine and must not retain payload.
type Observer interface {
	FrameSent(id byte, payload []byte)
	FrameReceived(id byte, payload []byte)
}

// Stats counts the traffic handled by one Engine.Run.
type Stats struct {
	// FramesSent and BytesSent count frames written to the transport
	// and the raw payload bytes they carried.
	FramesSent uint64
	BytesSent  uint64

	// FramesReceived and BytesReceived count decoded frames delivered
	// to a local channel and their payload bytes.
	FramesReceived uint64
	BytesReceived  uint64

	// FramesUndelivered counts decoded frames whose channel had been
	// removed, or that were addressed to the common channel itself.
	FramesUndelivered uint64

	// ChannelsRemoved counts channels removed after a hangup or an I/O
	// error.
	ChannelsRemoved uint64

	Parser ParserStats
}

// Engine is the multiplexer event loop. Configure the exported fields and
// call Run; the engine owns Registry until Run returns.
type Engine struct {
	// Registry holds the channels to serve. It must contain the common
	// channel (CommonID).
	Registry *Registry

	// ReadChunkSize bounds a single read. Zero selects
	// DefaultReadChunkSize.
	ReadChunkSize int

	// MaxPayloadHex bounds the hex digits of one inbound frame. Zero
	// selects DefaultMaxPayloadHex; negative means no bound.
	MaxPayloadHex int

	// Logger receives channel lifecycle events. Nil discards them.
	Logger *slog.Logger

	// Observer, if set, sees every frame sent and delivered.
	Observer Observer

	parser      *Parser
	readBuffer  []byte
	frameBuffer []byte
	stats       Stats
}

// Run serves the registry until it is empty or the transport fails.
//
// Each iteration blocks in a single poll(2) over every channel's input
// descriptor, then services each ready descriptor in registry order. A
// local channel that hangs up, fails a read, or fails a write is removed
// and the loop continues. A failure of the common channel returns an
// error wrapping ErrTransportFailed. If the common channel leaves the
// registry while the loop is running, Run returns ErrCommonChannelMissing.
//
// Run returns nil only when called with an empty registry.
func (engine *Engine) Run() error {
	registry := engine.Registry
	if registry == nil || registry.Len() == 0 {
		return nil
	}
	if registry.ByID(CommonID) == nil {
		return ErrCommonChannelMissing
	}

	logger := engine.logger()
	chunkSize := engine.ReadChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultReadChunkSize
	}
	engine.parser = NewParser(registry.has, engine.MaxPayloadHex)
	engine.readBuffer = make([]byte, chunkSize)
	engine.frameBuffer = make([]byte, 0, FrameLength(chunkSize))

	defer func() {
		stats := engine.Stats()
		logger.Debug("multiplexer stopped",
			"frames_sent", stats.FramesSent,
			"frames_received", stats.FramesReceived,
			"frames_dropped", stats.Parser.FramesDropped,
			"bytes_discarded", stats.Parser.BytesDiscarded,
			"channels_removed", stats.ChannelsRemoved,
		)
	}()

	var pollDescriptors []unix.PollFd
	for registry.Len() > 0 {
		if registry.ByID(CommonID) == nil {
			return ErrCommonChannelMissing
		}

		channels := registry.Channels()
		pollDescriptors = pollDescriptors[:0]
		for _, channel := range channels {
			pollDescriptors = append(pollDescriptors, unix.PollFd{
				Fd:     int32(channel.fd()),
				Events: unix.POLLIN,
			})
		}

		if _, err := unix.Poll(pollDescriptors, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll %d channels: %w", len(pollDescriptors), err)
		}

		for index, descriptor := range pollDescriptors {
			if descriptor.Revents == 0 {
				continue
			}
			channel := channels[index]
			// An earlier channel in this iteration may have caused this
			// one to be removed.
			if registry.ByInput(int(descriptor.Fd)) != channel {
				continue
			}
			if err := engine.service(channel, descriptor.Revents); err != nil {
				return err
			}
		}
	}
	return ErrCommonChannelMissing
}

// Stats returns the engine's counters. It must not be called while Run
// is executing on another goroutine.
func (engine *Engine) Stats() Stats {
	stats := engine.stats
	if engine.parser != nil {
		stats.Parser = engine.parser.Stats()
	}
	return stats
}

// service handles one ready descriptor.
func (engine *Engine) service(channel *Channel, revents int16) error {
	if revents&unix.POLLIN == 0 && revents&exceptionalEvents != 0 {
		return engine.fail(channel, fmt.Errorf("%w (revents %#x)", errHangup, revents))
	}

	bytesRead, err := unix.Read(channel.fd(), engine.readBuffer)
	if err != nil {
		if err == unix.EINTR || err == unix.EAGAIN {
			return nil
		}
		return engine.fail(channel, err)
	}
	if bytesRead == 0 {
		return engine.fail(channel, io.EOF)
	}
	data := engine.readBuffer[:bytesRead]

	if channel.ID == CommonID {
		for _, b := range data {
			if frame, ok := engine.parser.Feed(b); ok {
				if err := engine.deliver(frame); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return engine.send(channel, data)
}

// send frames payload for channel and writes it to the transport in a
// single write.
func (engine *Engine) send(channel *Channel, payload []byte) error {
	common := engine.Registry.ByID(CommonID)
	if common == nil {
		return ErrCommonChannelMissing
	}
	engine.frameBuffer = AppendFrame(engine.frameBuffer[:0], channel.ID, payload)
	if _, err := common.Output.Write(engine.frameBuffer); err != nil {
		return engine.fail(common, err)
	}
	engine.stats.FramesSent++
	engine.stats.BytesSent += uint64(len(payload))
	if engine.Observer != nil {
		engine.Observer.FrameSent(channel.ID, payload)
	}
	return nil
}

// deliver writes a decoded payload to its channel in a single write.
func (engine *Engine) deliver(frame Frame) error {
	target := engine.Registry.ByID(frame.ID)
	if target == nil || target.ID == CommonID {
		engine.stats.FramesUndelivered++
		return nil
	}
	engine.stats.FramesReceived++
	engine.stats.BytesReceived += uint64(len(frame.Payload))
	if engine.Observer != nil {
		engine.Observer.FrameReceived(frame.ID, frame.Payload)
	}
	if len(frame.Payload) == 0 {
		return nil
	}
	if _, err := target.Output.Write(frame.Payload); err != nil {
		return engine.fail(target, err)
	}
	return nil
}

// fail handles an I/O failure on channel: fatal for the common channel,
// removal for any other.
func (engine *Engine) fail(channel *Channel, cause error) error {
	logger := engine.logger()
	if channel.ID == CommonID {
		logger.Error("transport failed", "channel", channel.String(), "error", cause)
		return fmt.Errorf("%w: %s: %w", ErrTransportFailed, channel, cause)
	}

	level := slog.LevelWarn
	if isExpectedClose(cause) {
		level = slog.LevelInfo
	}
	logger.Log(context.Background(), level, "channel closed", "channel", channel.String(), "error", cause)
	engine.Registry.Remove(channel)
	engine.stats.ChannelsRemoved++
	return nil
}

func (engine *Engine) logger() *slog.Logger {
	if engine.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return engine.Logger
}
