// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pk910/protodefc/prototypes"
)

// Packet is a decoded packet handed to a Handler. Value and everything it references is
// only valid until the handler returns.
type Packet struct {
	Phase string
	ID    int32
	Name  string
	Value any
}

// Handler processes one decoded packet.
type Handler func(ctx context.Context, p *Packet) error

type route struct {
	name    string
	typ     prototypes.Type
	handler Handler
}

// Dispatcher routes raw packets by connection state and packet id, mirroring the generated
// dispatch_packet function: read the VarInt id, decode the payload and call the handler.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]map[int32]*route
	arenas *ArenaPool
	log    zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithArenaPool sets the pool that provides the per-packet arenas.
func WithArenaPool(pool *ArenaPool) DispatcherOption {
	return func(d *Dispatcher) {
		d.arenas = pool
	}
}

// WithLogger sets the logger for rejected packets.
func WithLogger(log zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher creates a dispatcher without routes.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		routes: make(map[string]map[int32]*route),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.arenas == nil {
		d.arenas = NewArenaPool(DefaultArenaLimit)
	}
	return d
}

// Register adds the route for packet id in phase.
func (d *Dispatcher) Register(phase string, id int32, name string, t prototypes.Type, h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids, ok := d.routes[phase]
	if !ok {
		ids = make(map[int32]*route)
		d.routes[phase] = ids
	}
	if existing, ok := ids[id]; ok {
		return fmt.Errorf("%w: %s 0x%02x (%s)", ErrDuplicateRoute, phase, id, existing.name)
	}
	ids[id] = &route{name: name, typ: t, handler: h}
	return nil
}

// Dispatch decodes one packet received in state and calls its handler. The payload must be
// consumed completely; fixed-size packets are checked against their static size first.
func (d *Dispatcher) Dispatch(ctx context.Context, state string, data []byte) error {
	dec := NewBufferDecoder(data)
	id, err := dec.DecodeVarint()
	if err != nil {
		return fmt.Errorf("failed to read packet id: %w", err)
	}
	payload := data[dec.GetPosition():]

	d.mu.RLock()
	ids, ok := d.routes[state]
	var r *route
	if ok {
		r = ids[id]
	}
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, state)
	}
	if r == nil {
		d.log.Debug().Str("phase", state).Int32("id", id).Msg("unknown packet id")
		return fmt.Errorf("%w: %d", ErrUnknownPacket, id)
	}

	if size := r.typ.Size(); !size.IsVariable() && size.Bytes() != len(payload) {
		return fmt.Errorf("%w: invalid size for packet %s (%d != %d)", ErrLengthMismatch, r.name, len(payload), size.Bytes())
	}

	arena := d.arenas.Get()
	defer d.arenas.Put(arena)

	value, n, err := Decode(r.typ, payload, arena)
	if err != nil {
		return fmt.Errorf("failed to read packet %s: %w", r.name, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: failed to read packet %s (%d != %d)", ErrLengthMismatch, r.name, n, len(payload))
	}

	return r.handler(ctx, &Packet{
		Phase: state,
		ID:    id,
		Name:  r.name,
		Value: value,
	})
}
