// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// Expr is a schema type expression: either a bare type name or a [kind, payload] pair.
//
// The set of implementations is closed: *Native, *Ref, *Container, *Switch, *PString,
// *Buffer, *Array, *Bitfield, *Option, *Mapper, *Templated, *Opaque and *Unknown.
type Expr interface {
	// Kind returns the compound kind name, or the referenced name for *Ref.
	Kind() string

	isExpr()
}

// Native marks a type whose codec is provided by the runtime ("native" in the type table).
type Native struct{}

// Ref names a previously defined type.
type Ref struct {
	Name string
}

// ContainerField is one member of a container.
type ContainerField struct {
	Name string
	Anon bool
	Type Expr
}

// Container is an ordered list of fields.
type Container struct {
	Fields []ContainerField
}

// SwitchCase is one explicit alternative of a switch, keyed by its literal value.
type SwitchCase struct {
	Value string
	Type  Expr
}

// Switch is a union selected by the value of the field named CompareTo.
type Switch struct {
	CompareTo string
	Cases     []SwitchCase
	Default   Expr
}

// PString is a length-prefixed character string.
type PString struct {
	CountType Expr
}

// Buffer is a length-prefixed byte string. Rest buffers consume the remaining input.
type Buffer struct {
	CountType Expr
	Rest      bool
}

// Array is a length-prefixed sequence.
type Array struct {
	CountType Expr
	Type      Expr
}

// BitfieldMember is one packed member of a bitfield.
type BitfieldMember struct {
	Name   string
	Size   int
	Signed bool
}

// Bitfield packs its members into one integer.
type Bitfield struct {
	Members []BitfieldMember
}

// Option is a value preceded by a presence flag.
type Option struct {
	Type Expr
}

// Mapping associates a wire value with a symbolic name.
type Mapping struct {
	Value string
	Name  string
}

// Mapper translates the values of Type through Mappings.
type Mapper struct {
	Type     Expr
	Mappings []Mapping
}

// Templated instantiates a shared abstract union with a use-site discriminant.
type Templated struct {
	Name      string
	CompareTo string
}

// Opaque is a kind handled entirely by the runtime.
type Opaque struct {
	Name string
}

// Unknown is a compound kind that is not understood, or a known kind with a payload of
// the wrong shape. Err holds the reason for the latter.
type Unknown struct {
	Name string
	Err  error
}

func (*Native) Kind() string      { return "native" }
func (r *Ref) Kind() string       { return r.Name }
func (*Container) Kind() string   { return "container" }
func (*Switch) Kind() string      { return "switch" }
func (*PString) Kind() string     { return "pstring" }
func (*Buffer) Kind() string      { return "buffer" }
func (*Array) Kind() string       { return "array" }
func (*Bitfield) Kind() string    { return "bitfield" }
func (*Option) Kind() string      { return "option" }
func (*Mapper) Kind() string      { return "mapper" }
func (t *Templated) Kind() string { return t.Name }
func (o *Opaque) Kind() string    { return o.Name }
func (u *Unknown) Kind() string   { return u.Name }

func (*Native) isExpr()    {}
func (*Ref) isExpr()       {}
func (*Container) isExpr() {}
func (*Switch) isExpr()    {}
func (*PString) isExpr()   {}
func (*Buffer) isExpr()    {}
func (*Array) isExpr()     {}
func (*Bitfield) isExpr()  {}
func (*Option) isExpr()    {}
func (*Mapper) isExpr()    {}
func (*Templated) isExpr() {}
func (*Opaque) isExpr()    {}
func (*Unknown) isExpr()   {}

var (
	ErrInvalidExpr    = errors.New("invalid type expression")
	ErrInvalidPayload = errors.New("invalid payload")
)

// exprParser turns JSON nodes into expressions. Kinds listed in templates and opaque are
// recognized in addition to the protodef built-in kinds.
type exprParser struct {
	templates map[string]bool
	opaque    map[string]bool
}

// Parse converts one type expression node.
func (p *exprParser) Parse(n *Node) (Expr, error) {
	switch n.Kind {
	case NodeString:
		if n.String == "native" {
			return &Native{}, nil
		}
		return &Ref{Name: n.String}, nil
	case NodeArray:
		if len(n.Items) != 2 || n.Items[0].Kind != NodeString {
			return nil, fmt.Errorf("%w: expected [kind, payload]", ErrInvalidExpr)
		}
		kind := n.Items[0].String
		expr, err := p.parseCompound(kind, n.Items[1])
		if err != nil {
			if errors.Is(err, ErrInvalidPayload) {
				return &Unknown{Name: kind, Err: err}, nil
			}
			return nil, err
		}
		return expr, nil
	}
	return nil, fmt.Errorf("%w: unexpected %v", ErrInvalidExpr, n.Kind)
}

func (p *exprParser) parseCompound(kind string, payload *Node) (Expr, error) {
	switch {
	case kind == "container":
		return p.parseContainer(payload)
	case kind == "switch":
		return p.parseSwitch(payload)
	case kind == "pstring":
		count, err := p.field(payload, "countType")
		if err != nil {
			return nil, err
		}
		return &PString{CountType: count}, nil
	case kind == "buffer":
		if rest := payload.Get("rest"); rest != nil && rest.Kind == NodeBool && rest.Bool {
			return &Buffer{Rest: true}, nil
		}
		count, err := p.field(payload, "countType")
		if err != nil {
			return nil, err
		}
		return &Buffer{CountType: count}, nil
	case kind == "array":
		count, err := p.field(payload, "countType")
		if err != nil {
			return nil, err
		}
		elem, err := p.field(payload, "type")
		if err != nil {
			return nil, err
		}
		return &Array{CountType: count, Type: elem}, nil
	case kind == "bitfield":
		return parseBitfield(payload)
	case kind == "option":
		elem, err := p.Parse(payload)
		if err != nil {
			return nil, err
		}
		return &Option{Type: elem}, nil
	case kind == "mapper":
		return p.parseMapper(payload)
	case p.templates[kind]:
		compareTo := payload.Get("compareTo")
		if compareTo == nil || compareTo.Kind != NodeString {
			return nil, fmt.Errorf("%w: %s without compareTo", ErrInvalidPayload, kind)
		}
		return &Templated{Name: kind, CompareTo: compareTo.String}, nil
	case p.opaque[kind]:
		return &Opaque{Name: kind}, nil
	}
	return &Unknown{Name: kind}, nil
}

func (p *exprParser) field(payload *Node, key string) (Expr, error) {
	n := payload.Get(key)
	if n == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPayload, key)
	}
	expr, err := p.Parse(n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return expr, nil
}

func (p *exprParser) parseContainer(payload *Node) (Expr, error) {
	if payload.Kind != NodeArray {
		return nil, fmt.Errorf("%w: container fields must be a list", ErrInvalidPayload)
	}
	c := &Container{Fields: make([]ContainerField, 0, len(payload.Items))}
	for i, item := range payload.Items {
		field := ContainerField{}
		if anon := item.Get("anon"); anon != nil && anon.Kind == NodeBool {
			field.Anon = anon.Bool
		}
		if !field.Anon {
			name := item.Get("name")
			if name == nil || name.Kind != NodeString {
				return nil, fmt.Errorf("%w: container field %d has no name", ErrInvalidPayload, i)
			}
			field.Name = name.String
		}
		typ, err := p.field(item, "type")
		if err != nil {
			return nil, fmt.Errorf("container field %d: %w", i, err)
		}
		field.Type = typ
		c.Fields = append(c.Fields, field)
	}
	return c, nil
}

func (p *exprParser) parseSwitch(payload *Node) (Expr, error) {
	compareTo := payload.Get("compareTo")
	if compareTo == nil || compareTo.Kind != NodeString {
		return nil, fmt.Errorf("%w: switch without compareTo", ErrInvalidPayload)
	}
	s := &Switch{CompareTo: compareTo.String}

	if fields := payload.Get("fields"); fields != nil {
		if fields.Kind != NodeObject {
			return nil, fmt.Errorf("%w: switch fields must be an object", ErrInvalidPayload)
		}
		for _, m := range fields.Members {
			typ, err := p.Parse(m.Value)
			if err != nil {
				return nil, fmt.Errorf("switch case %s: %w", m.Key, err)
			}
			s.Cases = append(s.Cases, SwitchCase{Value: m.Key, Type: typ})
		}
	}

	if def := payload.Get("default"); def != nil {
		typ, err := p.Parse(def)
		if err != nil {
			return nil, fmt.Errorf("switch default: %w", err)
		}
		s.Default = typ
	}
	return s, nil
}

func parseBitfield(payload *Node) (Expr, error) {
	if payload.Kind != NodeArray {
		return nil, fmt.Errorf("%w: bitfield members must be a list", ErrInvalidPayload)
	}
	b := &Bitfield{Members: make([]BitfieldMember, 0, len(payload.Items))}
	for i, item := range payload.Items {
		name := item.Get("name")
		size := item.Get("size")
		if name == nil || name.Kind != NodeString || size == nil || size.Kind != NodeNumber {
			return nil, fmt.Errorf("%w: bitfield member %d needs name and size", ErrInvalidPayload, i)
		}
		width, err := strconv.Atoi(size.Number)
		if err != nil {
			return nil, fmt.Errorf("%w: bitfield member %s: %v", ErrInvalidPayload, name.String, err)
		}
		member := BitfieldMember{Name: name.String, Size: width}
		if signed := item.Get("signed"); signed != nil && signed.Kind == NodeBool {
			member.Signed = signed.Bool
		}
		b.Members = append(b.Members, member)
	}
	return b, nil
}

func (p *exprParser) parseMapper(payload *Node) (Expr, error) {
	typ, err := p.field(payload, "type")
	if err != nil {
		return nil, err
	}
	mappings := payload.Get("mappings")
	if mappings == nil || mappings.Kind != NodeObject {
		return nil, fmt.Errorf("%w: mapper without mappings", ErrInvalidPayload)
	}
	m := &Mapper{Type: typ, Mappings: make([]Mapping, 0, len(mappings.Members))}
	for _, member := range mappings.Members {
		if member.Value.Kind != NodeString {
			return nil, fmt.Errorf("%w: mapping %s must name a string", ErrInvalidPayload, member.Key)
		}
		m.Mappings = append(m.Mappings, Mapping{Value: member.Key, Name: member.Value.String})
	}
	return m, nil
}
