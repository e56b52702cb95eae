// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

// codeContext carries the state of one procedure body: the output buffer, the chain of
// enclosing structs visible to discriminant references and the run-wide name counters.
type codeContext struct {
	appendCode func(indent int, code string, args ...any)
	gen        *Generator
	scopes     []fieldpath.Scope[prototypes.Type]
	structs    []*structScope
}

// structScope tracks how many fields of an enclosing struct have been emitted; only those
// are visible to discriminant references.
type structScope struct {
	s       *prototypes.Struct
	visible int
}

func newCodeContext(gen *Generator, codeBuf *strings.Builder) *codeContext {
	return &codeContext{
		appendCode: func(indent int, code string, args ...any) {
			appendCode(codeBuf, indent, code, args...)
		},
		gen: gen,
	}
}

func (ctx *codeContext) pushStruct(s *prototypes.Struct, path string) *structScope {
	scope := &structScope{s: s}
	ctx.structs = append(ctx.structs, scope)
	ctx.scopes = append(ctx.scopes, fieldpath.Scope[prototypes.Type]{
		Path: path,
		Lookup: func(name string) (prototypes.Type, bool) {
			return lookupField(scope.s.Fields[:scope.visible], name)
		},
	})
	return scope
}

func (ctx *codeContext) popStruct() {
	ctx.structs = ctx.structs[:len(ctx.structs)-1]
	ctx.scopes = ctx.scopes[:len(ctx.scopes)-1]
}

// lookupField finds the member called name, looking through anonymous structs and
// bitfields, whose members live in the enclosing namespace.
func lookupField(fields []prototypes.Field, name string) (prototypes.Type, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	for _, f := range fields {
		if f.Name != "" {
			continue
		}
		switch t := f.Type.(type) {
		case *prototypes.Struct:
			if typ, ok := lookupField(t.Fields, name); ok {
				return typ, true
			}
		case *prototypes.Bitfield:
			if typ, ok := bitfieldMember(t, name); ok {
				return typ, true
			}
		}
	}
	return nil, false
}

// descendField resolves "/" segments of a discriminant reference.
func descendField(t prototypes.Type, name string) (prototypes.Type, bool) {
	switch base := prototypes.Unalias(t).(type) {
	case *prototypes.Struct:
		return lookupField(base.Fields, name)
	case *prototypes.Bitfield:
		return bitfieldMember(base, name)
	}
	return nil, false
}

func bitfieldMember(b *prototypes.Bitfield, name string) (prototypes.Type, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			bits := bitfieldMemberBits(f.Width)
			return prototypes.NewNative(intName(bits, f.Signed), intCType(bits, f.Signed), prototypes.Fixed(bits/8)), true
		}
	}
	return nil, false
}

func bitfieldMemberBits(width int) int {
	bits, err := prototypes.ContainerBits(width)
	if err != nil {
		return 64
	}
	return bits
}

func intName(bits int, signed bool) string {
	if signed {
		return fmt.Sprintf("i%d", bits)
	}
	return fmt.Sprintf("u%d", bits)
}

func intCType(bits int, signed bool) string {
	if signed {
		return fmt.Sprintf("int%d_t", bits)
	}
	return fmt.Sprintf("uint%d_t", bits)
}

// discriminantKind is the emitted comparison style of a union.
type discriminantKind int

const (
	discriminantScalar discriminantKind = iota
	discriminantString
)

type discriminant struct {
	kind discriminantKind
	path string
	typ  prototypes.Type
}

var scalarDiscriminants = map[string]bool{
	"u8": true, "u16": true, "u32": true, "u64": true,
	"i8": true, "i16": true, "i32": true, "i64": true,
	"varint": true, "varlong": true, "bool": true,
}

// resolveDiscriminant locates the discriminant of u in the enclosing structs and decides the
// comparison style from its type.
func (ctx *codeContext) resolveDiscriminant(u *prototypes.Union) (*discriminant, error) {
	if u.IsTemplate() {
		return nil, ErrTemplateUse
	}
	if u.CompareTo == "" {
		return nil, ErrMissingDiscriminant
	}
	if len(ctx.scopes) == 0 {
		return nil, fmt.Errorf("%w: %q has no enclosing struct", ErrMissingDiscriminant, u.CompareTo)
	}

	target, err := fieldpath.Resolve(ctx.scopes, u.CompareTo, descendField)
	if err != nil {
		return nil, err
	}

	d := &discriminant{path: target.Path, typ: target.Value}
	switch t := prototypes.Unalias(target.Value).(type) {
	case *prototypes.Array:
		if elem, ok := prototypes.Unalias(t.Elem).(*prototypes.Native); ok && !t.IsRest() && (elem.Name == "i8" || elem.Name == "u8") {
			d.kind = discriminantString
			return d, nil
		}
	case *prototypes.Native:
		if scalarDiscriminants[t.Name] {
			d.kind = discriminantScalar
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDiscriminantType, u.CompareTo)
}

// caseValue renders the literal value of a scalar switch case.
func caseValue(d *discriminant, value string) (string, error) {
	native := prototypes.Unalias(d.typ).(*prototypes.Native)
	if native.Name == "bool" {
		switch value {
		case "true", "false":
			return value, nil
		}
		return "", fmt.Errorf("%w: invalid boolean value %q", ErrDiscriminantType, value)
	}
	if v, err := strconv.ParseInt(value, 0, 64); err == nil {
		return strconv.FormatInt(v, 10), nil
	}
	if v, err := strconv.ParseUint(value, 0, 64); err == nil {
		return strconv.FormatUint(v, 10) + "u", nil
	}
	return "", fmt.Errorf("%w: invalid integer value %q", ErrDiscriminantType, value)
}

// rootPath returns the access path of the top-level value inside a procedure.
func rootPath(t prototypes.Type) string {
	switch t.(type) {
	case *prototypes.Struct, *prototypes.Union, *prototypes.Bitfield:
		return "packet"
	}
	return "(*packet)"
}

// isSignedCount reports whether values of the count type t can be negative.
func isSignedCount(t prototypes.Type) bool {
	native, ok := prototypes.Unalias(t).(*prototypes.Native)
	if !ok {
		return false
	}
	return strings.HasPrefix(native.Name, "i") || native.Name == "varint" || native.Name == "varlong"
}

// isWideCount reports whether the count type t holds 64-bit values, which must be bounded
// before they take part in size arithmetic.
func isWideCount(t prototypes.Type) bool {
	native, ok := prototypes.Unalias(t).(*prototypes.Native)
	if !ok {
		return false
	}
	switch native.Name {
	case "u64", "i64", "varlong":
		return true
	}
	return false
}
