// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func newTestDispatcher(t *testing.T, handled *[]*Packet) *Dispatcher {
	t.Helper()
	d := NewDispatcher(WithArenaPool(NewArenaPool(64)))
	record := func(_ context.Context, p *Packet) error {
		*handled = append(*handled, p)
		return nil
	}

	if err := d.Register("handshaking", 0x00, "set_protocol", structOf(
		field("protocolVersion", builtin(t, "varint")),
		field("serverHost", stringType(t)),
	), record); err != nil {
		t.Fatal(err)
	}
	if err := d.Register("status", 0x00, "ping_start", structOf(), record); err != nil {
		t.Fatal(err)
	}
	if err := d.Register("status", 0x01, "ping", structOf(field("time", builtin(t, "i64"))), record); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDispatch(t *testing.T) {
	var handled []*Packet
	d := newTestDispatcher(t, &handled)
	ctx := context.Background()

	if err := d.Dispatch(ctx, "handshaking", []byte{0x00, 0xfa, 0x05, 0x02, 'm', 'c'}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := d.Dispatch(ctx, "status", []byte{0x01, 0, 0, 0, 0, 0, 0, 0x01, 0x00}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if err := d.Dispatch(ctx, "status", []byte{0x00}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	want := []*Packet{
		{
			Phase: "handshaking",
			ID:    0,
			Name:  "set_protocol",
			Value: NewRecord(member("protocolVersion", int32(762)), member("serverHost", "mc")),
		},
		{
			Phase: "status",
			ID:    1,
			Name:  "ping",
			Value: NewRecord(member("time", int64(256))),
		},
		{
			Phase: "status",
			ID:    0,
			Name:  "ping_start",
			Value: NewRecord(),
		},
	}
	if !reflect.DeepEqual(handled, want) {
		t.Errorf("handled %#v, want %#v", handled, want)
	}
}

func TestDispatchErrors(t *testing.T) {
	tests := []struct {
		name  string
		state string
		data  []byte
		err   error
	}{
		{"unknown state", "login", []byte{0x00}, ErrUnknownState},
		{"unknown id", "status", []byte{0x05}, ErrUnknownPacket},
		{"missing id", "status", nil, ErrUnexpectedEOF},
		{"fixed size mismatch", "status", []byte{0x01, 0, 0, 0}, ErrLengthMismatch},
		{"trailing bytes", "handshaking", []byte{0x00, 0x01, 0x00, 0xff}, ErrLengthMismatch},
		{"truncated payload", "handshaking", []byte{0x00, 0x01, 0x05, 'a'}, ErrUnexpectedEOF},
		{"arena exhausted", "handshaking", append([]byte{0x00, 0x01, 0x50}, make([]byte, 0x50)...), ErrArenaExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handled []*Packet
			d := newTestDispatcher(t, &handled)
			if err := d.Dispatch(context.Background(), tt.state, tt.data); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if len(handled) != 0 {
				t.Errorf("handler was called for a rejected packet")
			}
		})
	}
}

func TestDispatchHandlerError(t *testing.T) {
	errHandler := errors.New("handler failed")
	d := NewDispatcher()
	if err := d.Register("status", 0x00, "ping_start", structOf(), func(context.Context, *Packet) error {
		return errHandler
	}); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(context.Background(), "status", []byte{0x00}); !errors.Is(err, errHandler) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	var handled []*Packet
	d := newTestDispatcher(t, &handled)
	err := d.Register("status", 0x01, "pong", structOf(), func(context.Context, *Packet) error { return nil })
	if !errors.Is(err, ErrDuplicateRoute) {
		t.Errorf("expected %v, got %v", ErrDuplicateRoute, err)
	}
}
