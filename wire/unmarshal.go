// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"fmt"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

// rootPath names the top-level value in error messages.
const rootPath = "packet"

// Decode reads one value of type t from the start of data and returns it together with the
// number of consumed bytes.
//
// The decoder follows the generated read procedures: a truncated or malformed buffer fails
// with an error instead of a negative size, and no read ever goes past data. Variable-length
// allocations are accounted in arena; a nil arena is unbounded.
func Decode(t prototypes.Type, data []byte, arena *Arena) (any, int, error) {
	ctx := &decodeCtx{
		decoder: NewBufferDecoder(data),
		arena:   arena,
	}
	value, err := ctx.decodeType(t, rootPath)
	if err != nil {
		return nil, 0, err
	}
	return value, ctx.decoder.GetPosition(), nil
}

type decodeCtx struct {
	decoder *BufferDecoder
	arena   *Arena
	scopes  []fieldpath.Scope[any]
}

func (ctx *decodeCtx) decodeType(t prototypes.Type, path string) (any, error) {
	switch t := t.(type) {
	case *prototypes.Native:
		return ctx.decodeNative(t)
	case *prototypes.Alias:
		// named types are separate procedures: references cannot leave them
		scopes := ctx.scopes
		ctx.scopes = nil
		value, err := ctx.decodeType(t.Base, path)
		ctx.scopes = scopes
		return value, err
	case *prototypes.Void:
		return nil, nil
	case *prototypes.Struct:
		return ctx.decodeStruct(t, path)
	case *prototypes.Array:
		return ctx.decodeArray(t, path)
	case *prototypes.Bitfield:
		return ctx.decodeBitfield(t)
	case *prototypes.Option:
		return ctx.decodeOption(t, path)
	case *prototypes.Union:
		return ctx.decodeUnion(t, path)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, t)
}

func (ctx *decodeCtx) decodeNative(t *prototypes.Native) (any, error) {
	dec := ctx.decoder
	switch t.Name {
	case "u8":
		return dec.DecodeUint8()
	case "u16":
		return dec.DecodeUint16()
	case "u32":
		return dec.DecodeUint32()
	case "u64":
		return dec.DecodeUint64()
	case "i8":
		v, err := dec.DecodeUint8()
		return int8(v), err
	case "i16":
		v, err := dec.DecodeUint16()
		return int16(v), err
	case "i32":
		v, err := dec.DecodeUint32()
		return int32(v), err
	case "i64":
		v, err := dec.DecodeUint64()
		return int64(v), err
	case "f32":
		return dec.DecodeFloat32()
	case "f64":
		return dec.DecodeFloat64()
	case "bool":
		return dec.DecodeBool()
	case "uuid":
		return dec.DecodeUUID()
	case "varint":
		return dec.DecodeVarint()
	case "varlong":
		return dec.DecodeVarlong()
	}
	return nil, fmt.Errorf("%w: native %s", ErrUnsupported, t.Name)
}

func (ctx *decodeCtx) decodeStruct(s *prototypes.Struct, path string) (*Record, error) {
	rec := NewRecord()
	ctx.scopes = append(ctx.scopes, newScope(rec, path))
	defer func() {
		ctx.scopes = ctx.scopes[:len(ctx.scopes)-1]
	}()

	for _, f := range s.Fields {
		if prototypes.IsVoid(f.Type) {
			continue
		}
		value, err := ctx.decodeType(f.Type, fieldpath.Access(path, f.Name))
		if err != nil {
			if f.Name != "" {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			return nil, err
		}
		if err := setMember(rec, f.Name, value); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// setMember stores a decoded member. Anonymous members must be records and are merged.
func setMember(rec *Record, name string, value any) error {
	if name != "" {
		rec.Set(name, value)
		return nil
	}
	inner, ok := value.(*Record)
	if !ok {
		return fmt.Errorf("%w: anonymous member of type %T", ErrUnsupported, value)
	}
	rec.Merge(inner)
	return nil
}

func (ctx *decodeCtx) decodeArray(a *prototypes.Array, path string) (any, error) {
	dec := ctx.decoder
	elemSize := a.Elem.Size()

	var length int
	if a.IsRest() {
		if elemSize.IsVariable() || elemSize == 0 {
			return nil, fmt.Errorf("%w: rest array element of size %s", ErrUnsupported, elemSize)
		}
		length = dec.GetLength() / elemSize.Bytes()
	} else {
		count, err := ctx.decodeType(a.Count, fieldpath.Access(path, "length"))
		if err != nil {
			return nil, err
		}
		length, err = arrayLength(count)
		if err != nil {
			return nil, err
		}
		if !elemSize.IsVariable() && int64(length)*int64(elemSize) > int64(dec.GetLength()) {
			return nil, ErrUnexpectedEOF
		}
	}

	if err := ctx.arena.Alloc(length * footprint(a.Elem)); err != nil {
		return nil, err
	}

	if native, ok := prototypes.Unalias(a.Elem).(*prototypes.Native); ok {
		switch {
		case native.Name == "u8":
			return dec.DecodeBytes(length)
		case native.Name == "i8" && native.CType == "char":
			b, err := dec.DecodeBytes(length)
			return string(b), err
		}
	}

	elements := make([]any, length)
	for i := range elements {
		value, err := ctx.decodeType(a.Elem, fmt.Sprintf("%s[%d]", fieldpath.Access(path, "elements"), i))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elements[i] = value
	}
	return elements, nil
}

func arrayLength(count any) (int, error) {
	if n, ok := toInt64(count); ok {
		if n < 0 {
			return 0, fmt.Errorf("%w: %d", ErrInvalidLength, n)
		}
		return int(n), nil
	}
	if n, ok := toUint64(count); ok {
		if n > uint64(DefaultArenaLimit) {
			return 0, fmt.Errorf("%w: %d", ErrArenaExhausted, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: array count of type %T", ErrInvalidValue, count)
}

// footprint estimates the in-memory size of one element for arena accounting.
func footprint(t prototypes.Type) int {
	if size := t.Size(); !size.IsVariable() && size > 0 {
		return size.Bytes()
	}
	return 16
}

func (ctx *decodeCtx) decodeBitfield(b *prototypes.Bitfield) (*Record, error) {
	rec := NewRecord()
	bits := b.ContainerBits()
	if bits == 0 {
		return rec, nil
	}

	var packed uint64
	switch bits {
	case 8:
		v, err := ctx.decoder.DecodeUint8()
		if err != nil {
			return nil, err
		}
		packed = uint64(v)
	case 16:
		v, err := ctx.decoder.DecodeUint16()
		if err != nil {
			return nil, err
		}
		packed = uint64(v)
	case 32:
		v, err := ctx.decoder.DecodeUint32()
		if err != nil {
			return nil, err
		}
		packed = uint64(v)
	default:
		v, err := ctx.decoder.DecodeUint64()
		if err != nil {
			return nil, err
		}
		packed = v
	}

	offsets := b.Offsets()
	for i, f := range b.Fields {
		raw := (packed >> offsets[i]) & bitMask(f.Width)
		if f.Signed {
			rec.Set(f.Name, signExtend(raw, f.Width))
		} else {
			rec.Set(f.Name, raw)
		}
	}
	return rec, nil
}

func bitMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

func signExtend(raw uint64, width int) int64 {
	if width >= 64 {
		return int64(raw)
	}
	sign := uint64(1) << (width - 1)
	return int64((raw ^ sign) - sign)
}

func (ctx *decodeCtx) decodeOption(o *prototypes.Option, path string) (*Optional, error) {
	present, err := ctx.decoder.DecodeUint8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return &Optional{}, nil
	}
	value, err := ctx.decodeType(o.Elem, fieldpath.Access(path, "value"))
	if err != nil {
		return nil, err
	}
	return &Optional{Present: true, Value: value}, nil
}

func (ctx *decodeCtx) decodeUnion(u *prototypes.Union, path string) (*Record, error) {
	c, err := selectCase(ctx.scopes, u)
	if err != nil {
		return nil, err
	}

	rec := NewRecord()
	if prototypes.IsVoid(c.Type) {
		return rec, nil
	}
	value, err := ctx.decodeType(c.Type, fieldpath.Access(path, c.Name))
	if err != nil {
		if c.Name != "" {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		return nil, err
	}
	if err := setMember(rec, c.Name, value); err != nil {
		return nil, err
	}
	return rec, nil
}
