// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package builder

import (
	"errors"
	"fmt"

	"github.com/pk910/protodefc/prototypes"
	"github.com/pk910/protodefc/schema"
)

// Abandoned is a named type that could not be resolved.
type Abandoned struct {
	Name    string
	Missing string // last reference that could not be found
}

// Result lists the outcome of resolving a type table.
type Result struct {
	Resolved  []*prototypes.Alias // in resolution order
	Abandoned []Abandoned
}

type pending struct {
	name    string
	expr    schema.Expr
	retries int
	missing string
}

// Resolve builds and registers every named type of defs.
//
// Forward references are handled with a worklist: a definition that references a name that
// is not registered yet is put back on the queue. Each pass over the queue that registers
// nothing charges every remaining definition one retry; definitions past the configured
// retry limit are abandoned, together with everything that needs them. Any error other than
// a missing reference aborts resolution.
func (b *Builder) Resolve(defs []schema.TypeDef) (*Result, error) {
	res := &Result{}

	queue := make([]*pending, 0, len(defs))
	for _, def := range defs {
		name := SnakeCase(def.Name)
		if _, native := def.Expr.(*schema.Native); native || b.config.Skipped(name) {
			continue
		}
		queue = append(queue, &pending{name: name, expr: def.Expr})
	}

	for len(queue) > 0 {
		progress := false
		next := queue[:0]

		for _, p := range queue {
			typ, err := b.BuildNamed(p.name, p.expr)
			if err != nil {
				var notFound *prototypes.TypeNotFoundError
				if errors.As(err, &notFound) {
					p.missing = notFound.Name
					next = append(next, p)
					continue
				}
				return nil, fmt.Errorf("type %s: %w", p.name, err)
			}

			alias, err := b.table.Register(p.name, typ)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", p.name, err)
			}
			res.Resolved = append(res.Resolved, alias)
			progress = true
		}

		if !progress {
			kept := next[:0]
			for _, p := range next {
				p.retries++
				if p.retries > b.config.MaxRetries {
					b.log.Warn().Str("type", p.name).Str("missing", p.missing).Msg("cannot compile type")
					res.Abandoned = append(res.Abandoned, Abandoned{Name: p.name, Missing: p.missing})
					continue
				}
				b.log.Debug().Str("type", p.name).Str("missing", p.missing).Int("retry", p.retries).Msg("deferring type")
				kept = append(kept, p)
			}
			next = kept
		}
		queue = next
	}

	return res, nil
}

// Packet is a resolved client-to-server packet of a phase.
type Packet struct {
	Name   string // phase-qualified name, e.g. handshaking_packet_set_protocol
	Packet string // name in the phase packet table
	Type   prototypes.Type
}

// PhasePackets lists the packets of one phase and its id mapping.
type PhasePackets struct {
	Phase   string
	Packets []Packet
	Missing []Abandoned
	IDs     []schema.Mapping
}

// Packet returns the packet whose table name is name.
func (p *PhasePackets) Packet(name string) (*Packet, bool) {
	for i := range p.Packets {
		if p.Packets[i].Packet == name {
			return &p.Packets[i], true
		}
	}
	return nil, false
}

// BuildPhase builds the client-to-server packets of phase. The framing type and excluded
// packets are skipped; packets that reference abandoned types are reported as missing.
func (b *Builder) BuildPhase(phase *schema.Phase) (*PhasePackets, error) {
	ids, err := phase.PacketIDs()
	if err != nil {
		return nil, err
	}
	res := &PhasePackets{Phase: phase.Name, IDs: ids}

	for _, def := range phase.ToServer.Types {
		if def.Name == schema.PacketTypeName || b.config.Excluded(def.Name) {
			continue
		}
		name := phase.Name + "_" + def.Name

		typ, err := b.Build(def.Expr)
		if err != nil {
			var notFound *prototypes.TypeNotFoundError
			if errors.As(err, &notFound) {
				b.log.Warn().Str("packet", name).Str("missing", notFound.Name).Msg("cannot compile packet")
				res.Missing = append(res.Missing, Abandoned{Name: name, Missing: notFound.Name})
				continue
			}
			return nil, fmt.Errorf("packet %s: %w", name, err)
		}
		res.Packets = append(res.Packets, Packet{Name: name, Packet: def.Name, Type: typ})
	}

	return res, nil
}
