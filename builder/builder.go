// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package builder converts schema type expressions into resolved type graphs and registers
// the named types of a schema into a shared type table.
package builder

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pk910/protodefc/config"
	"github.com/pk910/protodefc/prototypes"
	"github.com/pk910/protodefc/schema"
)

var (
	ErrUnknownKind = errors.New("unknown construct")
	ErrMalformed   = errors.New("malformed type expression")
	ErrNotTemplate = errors.New("templated kind does not name an abstract union")
)

// Builder builds type graphs against one type table.
type Builder struct {
	table  *prototypes.Table
	config *config.Config
	log    zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// WithTable makes the builder resolve against an existing type table.
func WithTable(table *prototypes.Table) Option {
	return func(b *Builder) {
		b.table = table
	}
}

// New creates a builder. A nil cfg selects the default configuration.
func New(cfg *config.Config, opts ...Option) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	b := &Builder{
		config: cfg,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.table == nil {
		b.table = prototypes.NewTable()
	}
	return b
}

// Table returns the type table the builder registers into.
func (b *Builder) Table() *prototypes.Table {
	return b.table
}

// Build converts one type expression. References to names missing from the table fail with
// a *prototypes.TypeNotFoundError.
func (b *Builder) Build(expr schema.Expr) (prototypes.Type, error) {
	return b.build(expr, nil)
}

// BuildNamed converts the definition of the named type called name. The member name
// overrides configured for name apply to its root switch.
func (b *Builder) BuildNamed(name string, expr schema.Expr) (prototypes.Type, error) {
	return b.build(expr, b.config.FieldNames[name])
}

func (b *Builder) build(expr schema.Expr, names map[string]string) (prototypes.Type, error) {
	switch e := expr.(type) {
	case *schema.Ref:
		return b.lookup(e.Name)
	case *schema.Container:
		return b.buildContainer(e)
	case *schema.Switch:
		return b.buildSwitch(e, names)
	case *schema.PString:
		count, err := b.build(e.CountType, nil)
		if err != nil {
			return nil, err
		}
		elem, err := b.lookup("char")
		if err != nil {
			return nil, err
		}
		return prototypes.NewArray(count, elem), nil
	case *schema.Buffer:
		elem, err := b.lookup("u8")
		if err != nil {
			return nil, err
		}
		if e.Rest {
			arr, err := prototypes.NewRestArray(elem)
			if err != nil {
				return nil, err
			}
			return arr, nil
		}
		count, err := b.build(e.CountType, nil)
		if err != nil {
			return nil, err
		}
		return prototypes.NewArray(count, elem), nil
	case *schema.Array:
		count, err := b.build(e.CountType, nil)
		if err != nil {
			return nil, err
		}
		elem, err := b.build(e.Type, nil)
		if err != nil {
			return nil, err
		}
		return prototypes.NewArray(count, elem), nil
	case *schema.Bitfield:
		bf := prototypes.NewBitfield()
		for _, m := range e.Members {
			if err := bf.AddField(SnakeCase(m.Name), m.Size, m.Signed); err != nil {
				return nil, fmt.Errorf("bitfield member %s: %w", m.Name, err)
			}
		}
		return bf, nil
	case *schema.Option:
		elem, err := b.build(e.Type, nil)
		if err != nil {
			return nil, err
		}
		return prototypes.NewOption(elem), nil
	case *schema.Templated:
		return b.instantiate(e)
	case *schema.Opaque:
		o, ok := b.config.Opaque[e.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, e.Name)
		}
		return prototypes.NewNative(o.Name, o.CType, prototypes.Variable), nil
	case *schema.Unknown:
		if e.Err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, e.Name, e.Err)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, e.Name)
	case *schema.Native, *schema.Mapper:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, expr.Kind())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownKind, expr)
}

// lookup resolves a reference by its raw name first, then by its converted name.
func (b *Builder) lookup(name string) (prototypes.Type, error) {
	if b.table.Has(name) {
		return b.table.Lookup(name)
	}
	if snake := SnakeCase(name); b.table.Has(snake) {
		return b.table.Lookup(snake)
	}
	return nil, &prototypes.TypeNotFoundError{Name: name}
}

func (b *Builder) buildContainer(e *schema.Container) (prototypes.Type, error) {
	s := prototypes.NewStruct()
	for _, f := range e.Fields {
		typ, err := b.build(f.Type, nil)
		if err != nil {
			return nil, err
		}
		name := ""
		if !f.Anon {
			name = SnakeCase(f.Name)
		} else if base := prototypes.Unalias(typ); base != typ && prototypes.IsAggregate(base) {
			// anonymous named aggregates are inlined so their members stay reachable
			typ = base
		}
		s.AddField(name, typ)
	}
	return s, nil
}

func (b *Builder) buildSwitch(e *schema.Switch, names map[string]string) (prototypes.Type, error) {
	u := prototypes.NewUnion()
	if err := u.SetCompareTo(SnakeCase(e.CompareTo)); err != nil {
		return nil, err
	}
	if byDiscriminant, ok := b.config.DiscriminantFieldNames[e.CompareTo]; ok {
		names = byDiscriminant
	}

	for _, c := range e.Cases {
		typ, err := b.build(c.Type, nil)
		if err != nil {
			return nil, err
		}
		name := SnakeCase(names[c.Value])
		if name == "" && needsName(typ) {
			name = caseName(c.Value)
		}
		u.AddCase(name, typ, c.Value)
	}

	if e.Default != nil {
		typ, err := b.build(e.Default, nil)
		if err != nil {
			return nil, err
		}
		name := ""
		if needsName(typ) {
			name = defaultCaseName
		}
		u.SetDefault(name, typ)
	}
	return u, nil
}

// needsName reports whether a union alternative of type t has to be a named member.
func needsName(t prototypes.Type) bool {
	return !prototypes.IsVoid(t) && !prototypes.IsAggregate(t)
}

func (b *Builder) instantiate(e *schema.Templated) (prototypes.Type, error) {
	typ, err := b.lookup(e.Name)
	if err != nil {
		return nil, err
	}
	alias, ok := typ.(*prototypes.Alias)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTemplate, e.Name)
	}
	tmpl, ok := prototypes.Unalias(alias).(*prototypes.Union)
	if !ok || !tmpl.IsTemplate() {
		return nil, fmt.Errorf("%w: %s", ErrNotTemplate, e.Name)
	}
	inst, err := tmpl.Instantiate(SnakeCase(e.CompareTo))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	return inst, nil
}
