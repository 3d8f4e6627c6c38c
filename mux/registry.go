// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import "fmt"

// Registry is the set of active channels. Every channel is reachable by
// its id and by its input descriptor; Channels returns them in the order
// they were added, which is also the order the engine polls them in.
//
// Registry is not safe for concurrent use. The engine owns it while Run
// is executing.
type Registry struct {
	byID    map[byte]*Channel
	byInput map[int]*Channel
	order   []*Channel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[byte]*Channel),
		byInput: make(map[int]*Channel),
	}
}

// Add registers channel under its id and its input descriptor. Both
// keys must be free.
func (registry *Registry) Add(channel *Channel) error {
	if channel == nil || channel.Input == nil || channel.Output == nil {
		return fmt.Errorf("%w: channel needs an input and an output", ErrInvalidChannel)
	}
	if !validID(channel.ID) {
		return fmt.Errorf("%w: id %q is not a printable non-space byte", ErrInvalidChannel, channel.ID)
	}
	if existing, ok := registry.byID[channel.ID]; ok {
		return fmt.Errorf("%w: id %q already used by %s", ErrDuplicateChannel, channel.ID, existing)
	}
	fd := int(channel.Input.Fd())
	if fd < 0 {
		return fmt.Errorf("%w: input of %s is closed", ErrInvalidChannel, channel)
	}
	if existing, ok := registry.byInput[fd]; ok {
		return fmt.Errorf("%w: input descriptor %d already used by %s", ErrDuplicateChannel, fd, existing)
	}

	channel.inputFD = fd
	registry.byID[channel.ID] = channel
	registry.byInput[fd] = channel
	registry.order = append(registry.order, channel)
	return nil
}

// Remove unregisters channel. Removing a channel that is not registered
// does nothing. The input may already be closed.
func (registry *Registry) Remove(channel *Channel) {
	if channel == nil {
		return
	}
	if registry.byID[channel.ID] != channel {
		return
	}
	delete(registry.byID, channel.ID)
	delete(registry.byInput, channel.fd())
	for index, candidate := range registry.order {
		if candidate == channel {
			registry.order = append(registry.order[:index], registry.order[index+1:]...)
			break
		}
	}
}

// ByID returns the channel registered under id, or nil.
func (registry *Registry) ByID(id byte) *Channel {
	return registry.byID[id]
}

// ByInput returns the channel whose input descriptor is fd, or nil.
func (registry *Registry) ByInput(fd int) *Channel {
	return registry.byInput[fd]
}

// Channels returns the registered channels in insertion order. The
// returned slice is a copy.
func (registry *Registry) Channels() []*Channel {
	channels := make([]*Channel, len(registry.order))
	copy(channels, registry.order)
	return channels
}

// Len returns the number of registered channels.
func (registry *Registry) Len() int {
	return len(registry.order)
}

// has reports whether id names a registered channel. The parser uses
// it as its known-id predicate.
func (registry *Registry) has(id byte) bool {
	_, ok := registry.byID[id]
	return ok
}
