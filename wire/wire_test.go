// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/pk910/protodefc/prototypes"
)

var builtins = prototypes.NewTable()

func builtin(t *testing.T, name string) prototypes.Type {
	t.Helper()
	typ, err := builtins.Lookup(name)
	if err != nil {
		t.Fatalf("missing builtin %s: %v", name, err)
	}
	return typ
}

func structOf(fields ...prototypes.Field) *prototypes.Struct {
	s := prototypes.NewStruct()
	for _, f := range fields {
		s.AddField(f.Name, f.Type)
	}
	return s
}

func field(name string, typ prototypes.Type) prototypes.Field {
	return prototypes.Field{Name: name, Type: typ}
}

func member(name string, value any) Member {
	return Member{Name: name, Value: value}
}

// messageType is a struct with a varint discriminant followed by a union over it.
func messageType(t *testing.T, withDefault bool) prototypes.Type {
	t.Helper()
	u := prototypes.NewUnion()
	if err := u.SetCompareTo("kind"); err != nil {
		t.Fatal(err)
	}
	u.AddCase("ping", builtin(t, "i64"), "0")
	u.AddCase("", structOf(field("text", stringType(t))), "1")
	if withDefault {
		u.SetDefault("", &prototypes.Void{})
	}
	return structOf(
		field("kind", builtin(t, "varint")),
		field("data", u),
	)
}

func stringType(t *testing.T) prototypes.Type {
	return prototypes.NewAlias("string", prototypes.NewArray(builtin(t, "varint"), builtin(t, "char")))
}

func bitfieldType(t *testing.T) *prototypes.Bitfield {
	t.Helper()
	b := prototypes.NewBitfield()
	if err := b.AddField("x", 3, false); err != nil {
		t.Fatal(err)
	}
	if err := b.AddField("y", 5, true); err != nil {
		t.Fatal(err)
	}
	return b
}

type codecCase struct {
	name  string
	typ   prototypes.Type
	value any
	wire  []byte
	rest  bool // consumes the remaining buffer, so every prefix is valid
}

func codecCases(t *testing.T) []codecCase {
	restBytes, err := prototypes.NewRestArray(builtin(t, "u8"))
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	return []codecCase{
		{
			name:  "scalar struct",
			typ:   structOf(field("a", builtin(t, "u16")), field("b", builtin(t, "i8"))),
			value: NewRecord(member("a", uint16(0x1234)), member("b", int8(-2))),
			wire:  []byte{0x12, 0x34, 0xfe},
		},
		{
			name:  "varint",
			typ:   builtin(t, "varint"),
			value: int32(300),
			wire:  []byte{0xac, 0x02},
		},
		{
			name:  "negative varint",
			typ:   builtin(t, "varint"),
			value: int32(-1),
			wire:  []byte{0xff, 0xff, 0xff, 0xff, 0x0f},
		},
		{
			name:  "negative varlong",
			typ:   builtin(t, "varlong"),
			value: int64(-1),
			wire:  []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
		},
		{
			name:  "string",
			typ:   stringType(t),
			value: "hi",
			wire:  []byte{0x02, 'h', 'i'},
		},
		{
			name:  "rest buffer",
			typ:   restBytes,
			value: []byte{1, 2, 3},
			wire:  []byte{1, 2, 3},
			rest:  true,
		},
		{
			name:  "present option",
			typ:   prototypes.NewOption(builtin(t, "f32")),
			value: &Optional{Present: true, Value: float32(1.5)},
			wire:  []byte{0x01, 0x3f, 0xc0, 0x00, 0x00},
		},
		{
			name:  "absent option",
			typ:   prototypes.NewOption(builtin(t, "f32")),
			value: &Optional{},
			wire:  []byte{0x00},
		},
		{
			name:  "counted array",
			typ:   prototypes.NewArray(builtin(t, "varint"), builtin(t, "i16")),
			value: []any{int16(1), int16(-1)},
			wire:  []byte{0x02, 0x00, 0x01, 0xff, 0xff},
		},
		{
			name:  "bitfield",
			typ:   bitfieldType(t),
			value: NewRecord(member("x", uint64(5)), member("y", int64(-3))),
			wire:  []byte{0xed},
		},
		{
			name:  "uuid and bool",
			typ:   structOf(field("id", builtin(t, "UUID")), field("ok", builtin(t, "bool"))),
			value: NewRecord(member("id", id), member("ok", true)),
			wire:  append(append([]byte{}, id[:]...), 0x01),
		},
		{
			name: "union case",
			typ:  messageType(t, true),
			value: NewRecord(
				member("kind", int32(0)),
				member("data", NewRecord(member("ping", int64(5)))),
			),
			wire: []byte{0x00, 0, 0, 0, 0, 0, 0, 0, 0x05},
		},
		{
			name: "union anonymous case",
			typ:  messageType(t, true),
			value: NewRecord(
				member("kind", int32(1)),
				member("data", NewRecord(member("text", "a"))),
			),
			wire: []byte{0x01, 0x01, 'a'},
		},
		{
			name: "union void default",
			typ:  messageType(t, true),
			value: NewRecord(
				member("kind", int32(7)),
				member("data", NewRecord()),
			),
			wire: []byte{0x07},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, tt := range codecCases(t) {
		t.Run(tt.name, func(t *testing.T) {
			value, n, err := Decode(tt.typ, tt.wire, nil)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if n != len(tt.wire) {
				t.Errorf("decode consumed %d of %d bytes", n, len(tt.wire))
			}
			if !reflect.DeepEqual(value, tt.value) {
				t.Errorf("decoded %#v, want %#v", value, tt.value)
			}

			size, err := Size(tt.typ, tt.value)
			if err != nil {
				t.Fatalf("size failed: %v", err)
			}
			if size != len(tt.wire) {
				t.Errorf("size is %d, want %d", size, len(tt.wire))
			}

			encoded, err := Marshal(tt.typ, tt.value)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if !bytes.Equal(encoded, tt.wire) {
				t.Errorf("encoded %x, want %x", encoded, tt.wire)
			}
		})
	}
}

func TestTruncatedInput(t *testing.T) {
	for _, tt := range codecCases(t) {
		if tt.rest {
			continue
		}
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < len(tt.wire); i++ {
				if _, _, err := Decode(tt.typ, tt.wire[:i], nil); err == nil {
					t.Errorf("decoding %d of %d bytes should fail", i, len(tt.wire))
				}
			}
		})
	}
}

func TestShortOutputBuffer(t *testing.T) {
	for _, tt := range codecCases(t) {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.wire) == 0 {
				return
			}
			buf := make([]byte, len(tt.wire)-1)
			if _, err := Encode(tt.typ, tt.value, buf); !errors.Is(err, ErrShortBuffer) {
				t.Errorf("expected %v, got %v", ErrShortBuffer, err)
			}
		})
	}
}

func TestVarintEdges(t *testing.T) {
	tests := []struct {
		value int32
		wire  []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{2147483647, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		{-2147483648, []byte{0x80, 0x80, 0x80, 0x80, 0x08}},
	}

	for _, tt := range tests {
		enc := NewBufferEncoder(make([]byte, 5))
		if err := enc.EncodeVarint(tt.value); err != nil {
			t.Fatalf("encode %d: %v", tt.value, err)
		}
		if !bytes.Equal(enc.GetBuffer(), tt.wire) {
			t.Errorf("encode %d: got %x, want %x", tt.value, enc.GetBuffer(), tt.wire)
		}

		dec := NewBufferDecoder(tt.wire)
		v, err := dec.DecodeVarint()
		if err != nil {
			t.Fatalf("decode %x: %v", tt.wire, err)
		}
		if v != tt.value || dec.GetPosition() != len(tt.wire) {
			t.Errorf("decode %x: got %d after %d bytes", tt.wire, v, dec.GetPosition())
		}
	}

	invalid := []struct {
		name string
		wire []byte
		err  error
	}{
		{"six groups", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, ErrInvalidVarint},
		{"overflowing fifth group", []byte{0xff, 0xff, 0xff, 0xff, 0x1f}, ErrInvalidVarint},
		{"truncated", []byte{0x80, 0x80}, ErrUnexpectedEOF},
		{"empty", nil, ErrUnexpectedEOF},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewBufferDecoder(tt.wire)
			if _, err := dec.DecodeVarint(); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
			if dec.GetPosition() != 0 {
				t.Errorf("failed read consumed %d bytes", dec.GetPosition())
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		typ   prototypes.Type
		wire  []byte
		arena *Arena
		err   error
	}{
		{
			name: "negative count",
			typ:  prototypes.NewArray(builtin(t, "varint"), builtin(t, "u8")),
			wire: []byte{0xff, 0xff, 0xff, 0xff, 0x0f},
			err:  ErrInvalidLength,
		},
		{
			name: "count exceeds payload",
			typ:  prototypes.NewArray(builtin(t, "varint"), builtin(t, "i16")),
			wire: []byte{0x03, 0x00, 0x01, 0x00, 0x02},
			err:  ErrUnexpectedEOF,
		},
		{
			name: "invalid bool",
			typ:  builtin(t, "bool"),
			wire: []byte{0x02},
			err:  ErrInvalidValue,
		},
		{
			name: "no matching alternative",
			typ:  messageType(t, false),
			wire: []byte{0x07},
			err:  ErrInvalidVariant,
		},
		{
			name: "opaque type",
			typ:  builtin(t, "nbt"),
			wire: []byte{0x0a},
			err:  ErrUnsupported,
		},
		{
			name:  "arena exhausted",
			typ:   stringType(t),
			wire:  []byte{0x05, 'h', 'e', 'l', 'l', 'o'},
			arena: NewArena(4),
			err:   ErrArenaExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.typ, tt.wire, tt.arena); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		typ   prototypes.Type
		value any
		err   error
	}{
		{
			name:  "out of range",
			typ:   builtin(t, "u8"),
			value: 256,
			err:   ErrInvalidValue,
		},
		{
			name:  "negative unsigned",
			typ:   builtin(t, "u32"),
			value: -1,
			err:   ErrInvalidValue,
		},
		{
			name:  "wrong shape",
			typ:   structOf(field("a", builtin(t, "u8"))),
			value: uint8(1),
			err:   ErrInvalidValue,
		},
		{
			name:  "missing member",
			typ:   structOf(field("a", builtin(t, "u8")), field("b", builtin(t, "u8"))),
			value: NewRecord(member("a", uint8(1))),
			err:   ErrMissingValue,
		},
		{
			name:  "bitfield overflow",
			typ:   bitfieldType(t),
			value: NewRecord(member("x", 8), member("y", 0)),
			err:   ErrInvalidValue,
		},
		{
			name:  "signed bitfield underflow",
			typ:   bitfieldType(t),
			value: NewRecord(member("x", 0), member("y", -17)),
			err:   ErrInvalidValue,
		},
		{
			name:  "no matching alternative",
			typ:   messageType(t, false),
			value: NewRecord(member("kind", int32(9)), member("data", NewRecord())),
			err:   ErrInvalidVariant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Marshal(tt.typ, tt.value); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestBitfieldLayout(t *testing.T) {
	// first member in the least significant bits
	value, _, err := Decode(bitfieldType(t), []byte{0b11111_001}, nil)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := NewRecord(member("x", uint64(1)), member("y", int64(-1)))
	if !reflect.DeepEqual(value, want) {
		t.Errorf("decoded %#v, want %#v", value, want)
	}

	wide := prototypes.NewBitfield()
	for _, f := range []prototypes.BitField{{Name: "a", Width: 4}, {Name: "b", Width: 12, Signed: true}} {
		if err := wide.AddField(f.Name, f.Width, f.Signed); err != nil {
			t.Fatal(err)
		}
	}
	encoded, err := Marshal(wide, NewRecord(member("a", 0xf), member("b", -2048)))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Equal(encoded, []byte{0x80, 0x0f}) {
		t.Errorf("encoded %x, want 800f", encoded)
	}
}

func TestArenaPool(t *testing.T) {
	pool := NewArenaPool(8)
	arena := pool.Get()
	if err := arena.Alloc(6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := arena.Alloc(3); !errors.Is(err, ErrArenaExhausted) {
		t.Errorf("expected %v, got %v", ErrArenaExhausted, err)
	}
	if arena.Used() != 6 {
		t.Errorf("failed allocation changed usage to %d", arena.Used())
	}
	pool.Put(arena)

	if used := pool.Get().Used(); used != 0 {
		t.Errorf("pooled arena has %d bytes in use", used)
	}

	var unbounded *Arena
	if err := unbounded.Alloc(1 << 30); err != nil {
		t.Errorf("nil arena should admit everything: %v", err)
	}
}

func TestCaseMatches(t *testing.T) {
	tests := []struct {
		name  string
		disc  any
		value string
		match bool
		err   error
	}{
		{name: "bool true", disc: true, value: "true", match: true},
		{name: "bool false literal", disc: true, value: "false", match: false},
		{name: "bool false", disc: false, value: "false", match: true},
		{name: "bool numeric literal", disc: true, value: "1", err: ErrInvalidValue},
		{name: "bool short literal", disc: false, value: "f", err: ErrInvalidValue},
		{name: "bool upper case literal", disc: true, value: "TRUE", err: ErrInvalidValue},
		{name: "hex integer", disc: int32(16), value: "0x10", match: true},
		{name: "unsigned against negative", disc: uint8(1), value: "-1", match: false},
		{name: "string", disc: "minecraft:brand", value: "minecraft:brand", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := caseMatches(tt.disc, tt.value)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if match != tt.match {
				t.Errorf("expected match %v, got %v", tt.match, match)
			}
		})
	}
}
