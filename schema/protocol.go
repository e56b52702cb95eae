// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package schema loads protodef protocol documents. Object member order is kept everywhere
// because the order of type definitions, switch cases and id mappings is significant for the
// generated output.
package schema

import (
	"errors"
	"fmt"
)

// PacketTypeName is the type in every direction that frames the packets of that direction
// and carries the packet id mapping.
const PacketTypeName = "packet"

var (
	ErrNoTypes     = errors.New("schema has no types table")
	ErrNoPhase     = errors.New("phase not present in schema")
	ErrNoPacketIDs = errors.New("no packet id mapping found")
)

// TypeDef is a named type expression.
type TypeDef struct {
	Name string
	Expr Expr
}

// Direction is the packet table of one direction of a phase.
type Direction struct {
	Types []TypeDef
}

// Lookup returns the expression of the type called name.
func (d *Direction) Lookup(name string) (Expr, bool) {
	if d == nil {
		return nil, false
	}
	for _, t := range d.Types {
		if t.Name == name {
			return t.Expr, true
		}
	}
	return nil, false
}

// PacketIDs returns the id mapping of the direction's packet framing type: the first field
// of the packet container whose type is a mapper.
func (d *Direction) PacketIDs() ([]Mapping, error) {
	expr, ok := d.Lookup(PacketTypeName)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s type", ErrNoPacketIDs, PacketTypeName)
	}
	container, ok := expr.(*Container)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a container", ErrNoPacketIDs, PacketTypeName)
	}
	for _, f := range container.Fields {
		if mapper, ok := f.Type.(*Mapper); ok {
			return mapper.Mappings, nil
		}
	}
	return nil, ErrNoPacketIDs
}

// Phase is a connection state with its packet tables.
type Phase struct {
	Name     string
	ToServer *Direction
	ToClient *Direction
}

// PacketIDs returns the id mapping of the client-to-server direction.
func (p *Phase) PacketIDs() ([]Mapping, error) {
	if p.ToServer == nil {
		return nil, fmt.Errorf("%w: phase %s has no toServer table", ErrNoPacketIDs, p.Name)
	}
	ids, err := p.ToServer.PacketIDs()
	if err != nil {
		return nil, fmt.Errorf("phase %s: %w", p.Name, err)
	}
	return ids, nil
}

// Protocol is a loaded schema document.
type Protocol struct {
	Types  []TypeDef
	Phases []*Phase
}

// Phase returns the phase called name.
func (p *Protocol) Phase(name string) (*Phase, error) {
	for _, ph := range p.Phases {
		if ph.Name == name {
			return ph, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPhase, name)
}

// LoadOption configures Load.
type LoadOption func(*exprParser)

// WithTemplateKinds registers compound kinds that instantiate an abstract union.
func WithTemplateKinds(kinds ...string) LoadOption {
	return func(p *exprParser) {
		for _, k := range kinds {
			p.templates[k] = true
		}
	}
}

// WithOpaqueKinds registers compound kinds that are handled by the runtime.
func WithOpaqueKinds(kinds ...string) LoadOption {
	return func(p *exprParser) {
		for _, k := range kinds {
			p.opaque[k] = true
		}
	}
}

// Load parses a protocol document.
func Load(data []byte, opts ...LoadOption) (*Protocol, error) {
	root, err := ParseNode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if root.Kind != NodeObject {
		return nil, fmt.Errorf("%w: expected top-level object, got %v", ErrInvalidExpr, root.Kind)
	}

	parser := &exprParser{
		templates: map[string]bool{},
		opaque:    map[string]bool{},
	}
	for _, opt := range opts {
		opt(parser)
	}

	types := root.Get("types")
	if types == nil || types.Kind != NodeObject {
		return nil, ErrNoTypes
	}

	protocol := &Protocol{}
	protocol.Types, err = parser.parseTypes(types)
	if err != nil {
		return nil, err
	}

	for _, m := range root.Members {
		if m.Key == "types" || m.Value.Kind != NodeObject {
			continue
		}
		toServer, toClient := m.Value.Get("toServer"), m.Value.Get("toClient")
		if toServer == nil && toClient == nil {
			continue
		}
		phase := &Phase{Name: m.Key}
		if phase.ToServer, err = parser.parseDirection(toServer); err != nil {
			return nil, fmt.Errorf("%s.toServer: %w", m.Key, err)
		}
		if phase.ToClient, err = parser.parseDirection(toClient); err != nil {
			return nil, fmt.Errorf("%s.toClient: %w", m.Key, err)
		}
		protocol.Phases = append(protocol.Phases, phase)
	}

	return protocol, nil
}

func (p *exprParser) parseTypes(n *Node) ([]TypeDef, error) {
	if n.Kind != NodeObject {
		return nil, fmt.Errorf("%w: types must be an object", ErrInvalidExpr)
	}
	defs := make([]TypeDef, 0, len(n.Members))
	for _, m := range n.Members {
		expr, err := p.Parse(m.Value)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", m.Key, err)
		}
		defs = append(defs, TypeDef{Name: m.Key, Expr: expr})
	}
	return defs, nil
}

func (p *exprParser) parseDirection(n *Node) (*Direction, error) {
	if n == nil {
		return nil, nil
	}
	types := n.Get("types")
	if types == nil {
		return &Direction{}, nil
	}
	defs, err := p.parseTypes(types)
	if err != nil {
		return nil, err
	}
	return &Direction{Types: defs}, nil
}
