// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package prototypes

// Kind identifies the variant of a type node.
type Kind uint8

const (
	KindNative Kind = iota
	KindAlias
	KindStruct
	KindArray
	KindBitfield
	KindOption
	KindUnion
	KindVoid
)

var kindNames = [...]string{
	KindNative:   "native",
	KindAlias:    "alias",
	KindStruct:   "struct",
	KindArray:    "array",
	KindBitfield: "bitfield",
	KindOption:   "option",
	KindUnion:    "union",
	KindVoid:     "void",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Type is a node of the resolved type graph.
//
// The set of implementations is closed: *Native, *Alias, *Struct, *Array, *Bitfield, *Option,
// *Union and *Void. Nodes own their children exclusively; there are no parent pointers; code
// that needs the enclosing structures of a node (discriminant lookup) threads them explicitly.
type Type interface {
	// Kind returns the variant of the node.
	Kind() Kind
	// Size returns the encoded size class of the node.
	Size() Size
	// Clone returns an independent deep copy of the node.
	Clone() Type

	isType()
}

// Native is a primitive with a runtime read/write procedure pair (protocol_read_<Name>).
type Native struct {
	Name  string // symbolic primitive name used in procedure names
	CType string // target representation name
	size  Size
}

// NewNative creates a primitive node.
func NewNative(name, ctype string, size Size) *Native {
	return &Native{Name: name, CType: ctype, size: size}
}

func (n *Native) Kind() Kind  { return KindNative }
func (n *Native) Size() Size  { return n.size }
func (n *Native) Clone() Type { c := *n; return &c }
func (*Native) isType()       {}

// Alias is a named wrapper around another type. Named table entries are aliases, so a
// reference to a named type emits a call into that type's own procedures.
type Alias struct {
	Name string
	Base Type
}

// NewAlias wraps base under name.
func NewAlias(name string, base Type) *Alias {
	return &Alias{Name: name, Base: base}
}

func (a *Alias) Kind() Kind { return KindAlias }
func (a *Alias) Size() Size { return a.Base.Size() }
func (a *Alias) Clone() Type {
	return &Alias{Name: a.Name, Base: a.Base.Clone()}
}
func (*Alias) isType() {}

// Unalias follows alias chains down to the first non-alias node.
func Unalias(t Type) Type {
	for {
		a, ok := t.(*Alias)
		if !ok {
			return t
		}
		t = a.Base
	}
}

// Field is a named member of a Struct. An empty Name marks an anonymous member whose
// contents live directly in the enclosing value.
type Field struct {
	Name string
	Type Type
}

// Struct is an ordered sequence of fields. It is fixed-size iff every field is fixed-size.
type Struct struct {
	Fields []Field
	size   Size
}

// NewStruct creates an empty struct.
func NewStruct() *Struct {
	return &Struct{}
}

// AddField appends a member and updates the size class.
func (s *Struct) AddField(name string, t Type) {
	s.Fields = append(s.Fields, Field{Name: name, Type: t})
	s.size = s.size.Add(t.Size())
}

// Field returns the type of the member called name.
func (s *Struct) Field(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

func (s *Struct) Kind() Kind { return KindStruct }
func (s *Struct) Size() Size { return s.size }
func (s *Struct) Clone() Type {
	c := &Struct{Fields: make([]Field, len(s.Fields)), size: s.size}
	for i, f := range s.Fields {
		c.Fields[i] = Field{Name: f.Name, Type: f.Type.Clone()}
	}
	return c
}
func (*Struct) isType() {}

// Array is a counted sequence of elements. Without a Count type the array consumes the rest
// of the buffer, which requires a fixed-size element. Arrays are always variable-size.
type Array struct {
	Count Type
	Elem  Type
}

// NewArray creates an array with an explicit count type.
func NewArray(count, elem Type) *Array {
	return &Array{Count: count, Elem: elem}
}

// NewRestArray creates a tail-consuming array.
func NewRestArray(elem Type) (*Array, error) {
	if elem.Size().IsVariable() {
		return nil, ErrRestElemVariable
	}
	return &Array{Elem: elem}, nil
}

// IsRest reports whether the array consumes the remaining buffer.
func (a *Array) IsRest() bool {
	return a.Count == nil
}

func (a *Array) Kind() Kind { return KindArray }
func (a *Array) Size() Size { return Variable }
func (a *Array) Clone() Type {
	c := &Array{Elem: a.Elem.Clone()}
	if a.Count != nil {
		c.Count = a.Count.Clone()
	}
	return c
}
func (*Array) isType() {}

// Option is a value preceded by a one-byte presence flag.
type Option struct {
	Elem Type
}

// NewOption wraps elem.
func NewOption(elem Type) *Option {
	return &Option{Elem: elem}
}

func (o *Option) Kind() Kind  { return KindOption }
func (o *Option) Size() Size  { return Variable }
func (o *Option) Clone() Type { return &Option{Elem: o.Elem.Clone()} }
func (*Option) isType()       {}

// Void is the zero-size payload of branches that carry no data.
type Void struct{}

func (*Void) Kind() Kind  { return KindVoid }
func (*Void) Size() Size  { return 0 }
func (*Void) Clone() Type { return &Void{} }
func (*Void) isType()     {}

// IsVoid reports whether t is the void marker.
func IsVoid(t Type) bool {
	_, ok := t.(*Void)
	return ok
}

// IsAggregate reports whether values of t are laid out as a struct or union, which is what
// allows a member of that type to stay anonymous.
func IsAggregate(t Type) bool {
	switch t.(type) {
	case *Struct, *Union, *Bitfield:
		return true
	}
	return false
}
