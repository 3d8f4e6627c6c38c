// Copyright 2026 The Demul Authors
// SPDX-License-Identifier: Apache-2.0

package mux

import (
	"errors"
	"io"
	"os"
	"testing"
)

// fakeHandle is an InputHandle that is never read; registry tests only
// need distinct descriptors.
type fakeHandle uintptr

func (handle fakeHandle) Fd() uintptr { return uintptr(handle) }

func newTestChannel(id byte, fd uintptr) *Channel {
	return &Channel{ID: id, Role: RoleBinary, Input: fakeHandle(fd), Output: io.Discard}
}

func TestRegistryAddLookup(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	common := newTestChannel(CommonID, 3)
	shell := newTestChannel('1', 7)

	for _, channel := range []*Channel{common, shell} {
		if err := registry.Add(channel); err != nil {
			t.Fatalf("Add(%s): %v", channel, err)
		}
	}

	if got := registry.ByID('1'); got != shell {
		t.Errorf("ByID('1') = %v, want %v", got, shell)
	}
	if got := registry.ByInput(7); got != shell {
		t.Errorf("ByInput(7) = %v, want %v", got, shell)
	}
	if got := registry.ByInput(3); got != registry.ByID(CommonID) {
		t.Errorf("ByInput(3) and ByID('0') disagree: %v vs %v", got, registry.ByID(CommonID))
	}
	if got := registry.ByID('9'); got != nil {
		t.Errorf("ByID('9') = %v, want nil", got)
	}
	if registry.Len() != 2 {
		t.Errorf("Len() = %d, want 2", registry.Len())
	}
}

func TestRegistryAddRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		channel *Channel
		want    error
	}{
		{"duplicate id", newTestChannel('1', 20), ErrDuplicateChannel},
		{"duplicate input", newTestChannel('2', 10), ErrDuplicateChannel},
		{"newline id", newTestChannel('\n', 21), ErrInvalidChannel},
		{"space id", newTestChannel(' ', 22), ErrInvalidChannel},
		{"nil input", &Channel{ID: '3', Output: io.Discard}, ErrInvalidChannel},
		{"closed input", newTestChannel('5', ^uintptr(0)), ErrInvalidChannel},
		{"nil output", &Channel{ID: '4', Input: fakeHandle(23)}, ErrInvalidChannel},
		{"nil channel", nil, ErrInvalidChannel},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			registry := NewRegistry()
			if err := registry.Add(newTestChannel('1', 10)); err != nil {
				t.Fatalf("Add: %v", err)
			}
			err := registry.Add(test.channel)
			if !errors.Is(err, test.want) {
				t.Fatalf("Add error = %v, want %v", err, test.want)
			}
			if registry.Len() != 1 {
				t.Errorf("Len() = %d after rejected Add, want 1", registry.Len())
			}
		})
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	first := newTestChannel('1', 10)
	second := newTestChannel('2', 11)
	third := newTestChannel('3', 12)
	for _, channel := range []*Channel{first, second, third} {
		if err := registry.Add(channel); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	registry.Remove(second)
	if registry.ByID('2') != nil || registry.ByInput(11) != nil {
		t.Fatal("removed channel still reachable")
	}
	channels := registry.Channels()
	if len(channels) != 2 || channels[0] != first || channels[1] != third {
		t.Fatalf("Channels() = %v, want [first third]", channels)
	}

	// Unknown channels and impostors sharing an id are ignored.
	registry.Remove(second)
	registry.Remove(newTestChannel('1', 10))
	registry.Remove(nil)
	if registry.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", registry.Len())
	}

	// Both keys are free again.
	if err := registry.Add(newTestChannel('2', 11)); err != nil {
		t.Fatalf("re-Add after Remove: %v", err)
	}
}

func TestRegistryKeysStayConsistent(t *testing.T) {
	t.Parallel()
	registry := NewRegistry()
	channels := make([]*Channel, 0, 20)
	for index := 0; index < 20; index++ {
		channel := newTestChannel(byte('A'+index), uintptr(100+index))
		channels = append(channels, channel)
		if err := registry.Add(channel); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	for index := 0; index < 20; index += 3 {
		registry.Remove(channels[index])
	}

	for _, channel := range registry.Channels() {
		if registry.ByID(channel.ID) != channel {
			t.Errorf("ByID(%q) does not return the listed channel", channel.ID)
		}
		if registry.ByInput(channel.fd()) != channel {
			t.Errorf("ByInput(%d) does not return the listed channel", channel.fd())
		}
	}
	if len(registry.byID) != registry.Len() || len(registry.byInput) != registry.Len() {
		t.Errorf("index sizes byID=%d byInput=%d, Len=%d", len(registry.byID), len(registry.byInput), registry.Len())
	}
}

func TestRegistryRemoveAfterInputClosed(t *testing.T) {
	t.Parallel()
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer writer.Close()
	fd := int(reader.Fd())

	registry := NewRegistry()
	channel := &Channel{ID: '1', Role: RoleInteractive, Input: reader, Output: writer}
	if err := registry.Add(channel); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A closed *os.File reports descriptor -1.
	reader.Close()
	registry.Remove(channel)

	if registry.ByID('1') != nil {
		t.Error("ByID still finds the removed channel")
	}
	if got := registry.ByInput(fd); got != nil {
		t.Errorf("ByInput(%d) = %v after Remove, want nil", fd, got)
	}
	if len(registry.byInput) != 0 || registry.Len() != 0 {
		t.Errorf("byInput=%d Len=%d, want both empty", len(registry.byInput), registry.Len())
	}

	// The descriptor number is free for the next channel to reuse.
	if err := registry.Add(newTestChannel('2', uintptr(fd))); err != nil {
		t.Errorf("Add on reused descriptor %d: %v", fd, err)
	}
}
