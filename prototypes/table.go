// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package prototypes

import "fmt"

// Table maps schema type names to resolved types. It is seeded with the built-in primitives
// and only grows while a schema is resolved.
//
// Lookups hand out deep copies, so every use site owns its node.
type Table struct {
	entries map[string]Type
}

// NewTable creates a table holding the built-in primitives.
func NewTable() *Table {
	t := &Table{
		entries: make(map[string]Type, len(builtinTypes)+64),
	}
	for _, b := range builtinTypes {
		t.entries[b.name] = b.build()
	}
	return t
}

// Register adds a resolved named type and returns the alias stored for it.
func (t *Table) Register(name string, typ Type) (*Alias, error) {
	if _, exists := t.entries[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	alias := NewAlias(name, typ)
	t.entries[name] = alias
	return alias, nil
}

// Has reports whether name is present.
func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Lookup returns an independent copy of the entry called name.
func (t *Table) Lookup(name string) (Type, error) {
	typ, ok := t.entries[name]
	if !ok {
		return nil, &TypeNotFoundError{Name: name}
	}
	return typ.Clone(), nil
}
