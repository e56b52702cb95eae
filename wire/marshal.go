// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

// Encode writes value as type t into buf and returns the number of written bytes. A buffer
// that is too small fails with ErrShortBuffer.
//
// Values use the shapes produced by Decode. Integers may be given as any Go integer type
// as long as they fit the wire type.
func Encode(t prototypes.Type, value any, buf []byte) (int, error) {
	ctx := &encodeCtx{encoder: NewBufferEncoder(buf)}
	if err := ctx.encodeType(t, value, rootPath); err != nil {
		return 0, err
	}
	return ctx.encoder.GetPosition(), nil
}

// Size returns the encoded length of value as type t.
func Size(t prototypes.Type, value any) (int, error) {
	if size := t.Size(); !size.IsVariable() {
		return size.Bytes(), nil
	}
	ctx := &encodeCtx{encoder: newCountingEncoder()}
	if err := ctx.encodeType(t, value, rootPath); err != nil {
		return 0, err
	}
	return ctx.encoder.GetPosition(), nil
}

// Marshal encodes value as type t into a new buffer of exactly the encoded length.
func Marshal(t prototypes.Type, value any) ([]byte, error) {
	size, err := Size(t, value)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := Encode(t, value, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

type encodeCtx struct {
	encoder *BufferEncoder
	scopes  []fieldpath.Scope[any]
}

func (ctx *encodeCtx) encodeType(t prototypes.Type, value any, path string) error {
	switch t := t.(type) {
	case *prototypes.Native:
		return ctx.encodeNative(t, value)
	case *prototypes.Alias:
		scopes := ctx.scopes
		ctx.scopes = nil
		err := ctx.encodeType(t.Base, value, path)
		ctx.scopes = scopes
		return err
	case *prototypes.Void:
		return nil
	case *prototypes.Struct:
		return ctx.encodeStruct(t, value, path)
	case *prototypes.Array:
		return ctx.encodeArray(t, value, path)
	case *prototypes.Bitfield:
		return ctx.encodeBitfield(t, value)
	case *prototypes.Option:
		return ctx.encodeOption(t, value, path)
	case *prototypes.Union:
		return ctx.encodeUnion(t, value, path)
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, t)
}

func (ctx *encodeCtx) encodeNative(t *prototypes.Native, value any) error {
	enc := ctx.encoder
	switch t.Name {
	case "u8", "u16", "u32", "u64":
		bits := nativeBits(t)
		v, err := uintValue(value, bits)
		if err != nil {
			return err
		}
		return encodeUint(enc, v, bits)
	case "i8", "i16", "i32", "i64":
		bits := nativeBits(t)
		v, err := intValue(value, bits)
		if err != nil {
			return err
		}
		return encodeUint(enc, uint64(v), bits)
	case "f32":
		v, err := floatValue(value)
		if err != nil {
			return err
		}
		return enc.EncodeFloat32(float32(v))
	case "f64":
		v, err := floatValue(value)
		if err != nil {
			return err
		}
		return enc.EncodeFloat64(v)
	case "bool":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: expected bool, got %T", ErrInvalidValue, value)
		}
		return enc.EncodeBool(v)
	case "uuid":
		v, err := uuidValue(value)
		if err != nil {
			return err
		}
		return enc.EncodeUUID(v)
	case "varint":
		v, err := intValue(value, 32)
		if err != nil {
			return err
		}
		return enc.EncodeVarint(int32(v))
	case "varlong":
		v, err := intValue(value, 64)
		if err != nil {
			return err
		}
		return enc.EncodeVarlong(v)
	}
	return fmt.Errorf("%w: native %s", ErrUnsupported, t.Name)
}

func nativeBits(t *prototypes.Native) int {
	return t.Size().Bytes() * 8
}

func encodeUint(enc *BufferEncoder, v uint64, bits int) error {
	switch bits {
	case 8:
		return enc.EncodeUint8(uint8(v))
	case 16:
		return enc.EncodeUint16(uint16(v))
	case 32:
		return enc.EncodeUint32(uint32(v))
	default:
		return enc.EncodeUint64(v)
	}
}

// intValue converts any Go integer to int64 and checks that it fits a signed integer of
// the given width.
func intValue(value any, bits int) (int64, error) {
	v, ok := toInt64(value)
	if !ok {
		u, isUnsigned := toUint64(value)
		if !isUnsigned {
			return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidValue, value)
		}
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int%d", ErrInvalidValue, u, bits)
		}
		v = int64(u)
	}
	if bits < 64 {
		limit := int64(1) << (bits - 1)
		if v < -limit || v >= limit {
			return 0, fmt.Errorf("%w: %d overflows int%d", ErrInvalidValue, v, bits)
		}
	}
	return v, nil
}

// uintValue converts any non-negative Go integer to uint64 and checks that it fits an
// unsigned integer of the given width.
func uintValue(value any, bits int) (uint64, error) {
	v, ok := toUint64(value)
	if !ok {
		s, isSigned := toInt64(value)
		if !isSigned {
			return 0, fmt.Errorf("%w: expected integer, got %T", ErrInvalidValue, value)
		}
		if s < 0 {
			return 0, fmt.Errorf("%w: %d is negative", ErrInvalidValue, s)
		}
		v = uint64(s)
	}
	if bits < 64 && v >= uint64(1)<<bits {
		return 0, fmt.Errorf("%w: %d overflows uint%d", ErrInvalidValue, v, bits)
	}
	return v, nil
}

func floatValue(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return 0, fmt.Errorf("%w: expected float, got %T", ErrInvalidValue, value)
}

func uuidValue(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("%w: expected uuid, got %T", ErrInvalidValue, value)
}

func recordValue(value any) (*Record, error) {
	rec, ok := value.(*Record)
	if !ok || rec == nil {
		return nil, fmt.Errorf("%w: expected *Record, got %T", ErrInvalidValue, value)
	}
	return rec, nil
}

// memberValue returns the value of a named member. Anonymous members read from the
// enclosing record itself.
func memberValue(rec *Record, name string) (any, error) {
	if name == "" {
		return rec, nil
	}
	v, ok := rec.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingValue, name)
	}
	return v, nil
}

func (ctx *encodeCtx) encodeStruct(s *prototypes.Struct, value any, path string) error {
	rec, err := recordValue(value)
	if err != nil {
		return err
	}
	ctx.scopes = append(ctx.scopes, newScope(rec, path))
	defer func() {
		ctx.scopes = ctx.scopes[:len(ctx.scopes)-1]
	}()

	for _, f := range s.Fields {
		if prototypes.IsVoid(f.Type) {
			continue
		}
		v, err := memberValue(rec, f.Name)
		if err != nil {
			return err
		}
		if err := ctx.encodeType(f.Type, v, fieldpath.Access(path, f.Name)); err != nil {
			if f.Name != "" {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			return err
		}
	}
	return nil
}

func (ctx *encodeCtx) encodeArray(a *prototypes.Array, value any, path string) error {
	enc := ctx.encoder

	var (
		raw      []byte
		elements []any
		length   int
	)
	switch v := value.(type) {
	case []byte:
		raw, length = v, len(v)
	case string:
		raw, length = []byte(v), len(v)
	case []any:
		elements, length = v, len(v)
	case nil:
	default:
		return fmt.Errorf("%w: expected array, got %T", ErrInvalidValue, value)
	}

	if !a.IsRest() {
		if err := ctx.encodeType(a.Count, length, fieldpath.Access(path, "length")); err != nil {
			return err
		}
	}

	if raw != nil {
		if native, ok := prototypes.Unalias(a.Elem).(*prototypes.Native); ok && (native.Name == "u8" || native.Name == "i8") {
			return enc.EncodeBytes(raw)
		}
		elements = make([]any, len(raw))
		for i, b := range raw {
			elements[i] = b
		}
	}

	for i, elem := range elements {
		if err := ctx.encodeType(a.Elem, elem, fmt.Sprintf("%s[%d]", fieldpath.Access(path, "elements"), i)); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (ctx *encodeCtx) encodeBitfield(b *prototypes.Bitfield, value any) error {
	bits := b.ContainerBits()
	if bits == 0 {
		return nil
	}
	rec, err := recordValue(value)
	if err != nil {
		return err
	}

	var packed uint64
	offsets := b.Offsets()
	for i, f := range b.Fields {
		v, err := memberValue(rec, f.Name)
		if err != nil {
			return err
		}
		var raw uint64
		if f.Signed {
			s, err := intValue(v, f.Width)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			raw = uint64(s) & bitMask(f.Width)
		} else {
			u, err := uintValue(v, f.Width)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			raw = u
		}
		packed |= raw << offsets[i]
	}
	return encodeUint(ctx.encoder, packed, bits)
}

func (ctx *encodeCtx) encodeOption(o *prototypes.Option, value any, path string) error {
	var opt Optional
	switch v := value.(type) {
	case Optional:
		opt = v
	case *Optional:
		if v != nil {
			opt = *v
		}
	case nil:
	default:
		return fmt.Errorf("%w: expected Optional, got %T", ErrInvalidValue, value)
	}

	if !opt.Present {
		return ctx.encoder.EncodeUint8(0)
	}
	if err := ctx.encoder.EncodeUint8(1); err != nil {
		return err
	}
	return ctx.encodeType(o.Elem, opt.Value, fieldpath.Access(path, "value"))
}

func (ctx *encodeCtx) encodeUnion(u *prototypes.Union, value any, path string) error {
	c, err := selectCase(ctx.scopes, u)
	if err != nil {
		return err
	}
	if prototypes.IsVoid(c.Type) {
		return nil
	}
	rec, err := recordValue(value)
	if err != nil {
		return err
	}
	v, err := memberValue(rec, c.Name)
	if err != nil {
		return err
	}
	if err := ctx.encodeType(c.Type, v, fieldpath.Access(path, c.Name)); err != nil {
		if c.Name != "" {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		return err
	}
	return nil
}
