// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package prototypes

// TemplateSentinel is the discriminant name that marks a union as an abstract template.
// Templates are never rendered; use sites bind a real discriminant via Instantiate.
const TemplateSentinel = "$compare_to"

// Case is one alternative of a Union.
type Case struct {
	Name  string // member name, empty for an anonymous member
	Type  Type
	Value string // literal discriminant value as written in the schema
}

// Union is a discriminated union. CompareTo names the discriminant field, relative to the
// innermost enclosing struct, with optional "../" hops and "/" descents.
type Union struct {
	CompareTo string
	Cases     []Case
	Default   *Case
}

// NewUnion creates an unbound union.
func NewUnion() *Union {
	return &Union{}
}

// SetCompareTo binds the discriminant. Binding TemplateSentinel turns the union into an
// abstract template.
func (u *Union) SetCompareTo(name string) error {
	if u.CompareTo != "" {
		return ErrAlreadyBound
	}
	u.CompareTo = name
	return nil
}

// AddCase appends an alternative selected by value.
func (u *Union) AddCase(name string, t Type, value string) {
	u.Cases = append(u.Cases, Case{Name: name, Type: t, Value: value})
}

// SetDefault sets the alternative used when no case value matches.
func (u *Union) SetDefault(name string, t Type) {
	u.Default = &Case{Name: name, Type: t}
}

// Alternatives returns the cases followed by the default alternative, if any.
func (u *Union) Alternatives() []Case {
	alts := make([]Case, 0, len(u.Cases)+1)
	alts = append(alts, u.Cases...)
	if u.Default != nil {
		alts = append(alts, *u.Default)
	}
	return alts
}

// IsTemplate reports whether the union is an unbound template that must not emit code.
func (u *Union) IsTemplate() bool {
	return u.CompareTo == TemplateSentinel
}

// Instantiate returns an independent copy of a template bound to a concrete discriminant.
func (u *Union) Instantiate(compareTo string) (*Union, error) {
	if !u.IsTemplate() {
		return nil, ErrNotTemplate
	}
	if compareTo == "" || compareTo == TemplateSentinel {
		return nil, ErrMissingCompareTo
	}
	inst := u.Clone().(*Union)
	inst.CompareTo = compareTo
	return inst, nil
}

// Size returns the encoded size class. The wire carries only the selected alternative, so
// a union is fixed-size only when it cannot fail (it has a default) and every alternative
// encodes to the same fixed length.
func (u *Union) Size() Size {
	if u.Default == nil {
		return Variable
	}
	size := Variable
	for i, alt := range u.Alternatives() {
		s := alt.Type.Size()
		if s.IsVariable() {
			return Variable
		}
		if i == 0 {
			size = s
		} else if s != size {
			return Variable
		}
	}
	return size
}

func (u *Union) Kind() Kind { return KindUnion }
func (u *Union) Clone() Type {
	c := &Union{
		CompareTo: u.CompareTo,
		Cases:     make([]Case, len(u.Cases)),
	}
	for i, cs := range u.Cases {
		c.Cases[i] = Case{Name: cs.Name, Type: cs.Type.Clone(), Value: cs.Value}
	}
	if u.Default != nil {
		c.Default = &Case{Name: u.Default.Name, Type: u.Default.Type.Clone()}
	}
	return c
}
func (*Union) isType() {}
