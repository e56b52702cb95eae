// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package prototypes

type builtinType struct {
	name  string
	build func() Type
}

func native(name, ctype string, size Size) func() Type {
	return func() Type { return NewNative(name, ctype, size) }
}

// builtinTypes are the primitives every schema may reference without defining them.
var builtinTypes = []builtinType{
	{"char", native("i8", "char", 1)},
	{"u8", native("u8", "uint8_t", 1)},
	{"u16", native("u16", "uint16_t", 2)},
	{"u32", native("u32", "uint32_t", 4)},
	{"u64", native("u64", "uint64_t", 8)},
	{"i8", native("i8", "int8_t", 1)},
	{"i16", native("i16", "int16_t", 2)},
	{"i32", native("i32", "int32_t", 4)},
	{"i64", native("i64", "int64_t", 8)},
	{"f32", native("f32", "float", 4)},
	{"f64", native("f64", "double", 8)},
	{"bool", native("bool", "bool", 1)},
	{"UUID", native("uuid", "uuid_t", 16)},
	{"varint", native("varint", "int32_t", Variable)},
	{"varlong", native("varlong", "int64_t", Variable)},
	{"void", func() Type { return &Void{} }},
	{"nbt", native("nbt", "nbt_t", Variable)},
	{"optionalNbt", native("nbt", "nbt_t", Variable)},
	{"restBuffer", func() Type {
		arr, _ := NewRestArray(NewNative("u8", "uint8_t", 1))
		return arr
	}},
}
