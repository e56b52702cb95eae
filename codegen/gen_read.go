// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

// readType emits the decode of t into dest.
//
// Fixed-size types never check capacity: whoever places them has already verified that
// enough bytes remain and accounts for them in size. Variable-size types check and consume
// their own bytes and return -1 from the procedure on shortage or malformed input.
func (ctx *codeContext) readType(t prototypes.Type, dest string, indent int) error {
	switch t := t.(type) {
	case *prototypes.Native:
		if t.Size().IsVariable() {
			ctx.appendCode(indent, "read_size = protocol_read_%s(data, size, &%s);\n", t.Name, dest)
			ctx.appendCode(indent, "if (read_size < 0) return -1;\n")
			ctx.appendCode(indent, "data += read_size;\n")
			ctx.appendCode(indent, "size -= read_size;\n")
		} else {
			ctx.appendCode(indent, "%s = protocol_read_%s(data);\n", dest, t.Name)
			ctx.appendCode(indent, "data += %d;\n", t.Size())
		}
	case *prototypes.Alias:
		if isTemplate(t) {
			return fmt.Errorf("%w: %s", ErrTemplateUse, t.Name)
		}
		if t.Size().IsVariable() {
			ctx.appendCode(indent, "read_size = protocol_read_%s(arena, data, size, &%s);\n", t.Name, dest)
			ctx.appendCode(indent, "if (read_size < 0) return -1;\n")
			ctx.appendCode(indent, "data += read_size;\n")
			ctx.appendCode(indent, "size -= read_size;\n")
		} else if t.Size() > 0 {
			ctx.appendCode(indent, "%s = protocol_read_%s(data);\n", dest, t.Name)
			ctx.appendCode(indent, "data += %d;\n", t.Size())
		}
	case *prototypes.Void:
	case *prototypes.Struct:
		return ctx.readStruct(t, dest, indent)
	case *prototypes.Array:
		return ctx.readArray(t, dest, indent)
	case *prototypes.Bitfield:
		ctx.readBitfield(t, dest, indent)
	case *prototypes.Option:
		return ctx.readOption(t, dest, indent)
	case *prototypes.Union:
		return ctx.readUnion(t, dest, indent)
	default:
		return fmt.Errorf("cannot read %T", t)
	}
	return nil
}

// readStruct emits the fields in order. Each maximal run of fixed-size fields shares one
// capacity check; a variable-size field ends the run and checks itself.
func (ctx *codeContext) readStruct(s *prototypes.Struct, dest string, indent int) error {
	scope := ctx.pushStruct(s, dest)
	defer ctx.popStruct()

	checked := s.Size().IsVariable()
	for idx := 0; idx < len(s.Fields); {
		end := idx
		total := 0
		for end < len(s.Fields) && !s.Fields[end].Type.Size().IsVariable() {
			total += s.Fields[end].Type.Size().Bytes()
			end++
		}

		if end > idx {
			if checked && total > 0 {
				ctx.appendCode(indent, "if (size < %d) return -1;\n", total)
			}
			for ; idx < end; idx++ {
				if err := ctx.readField(scope, idx, dest, indent); err != nil {
					return err
				}
			}
			if checked && total > 0 {
				ctx.appendCode(indent, "size -= %d;\n", total)
			}
		}

		if idx < len(s.Fields) {
			if err := ctx.readField(scope, idx, dest, indent); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

func (ctx *codeContext) readField(scope *structScope, idx int, dest string, indent int) error {
	f := scope.s.Fields[idx]
	if f.Name == "" && !prototypes.IsAggregate(f.Type) && !prototypes.IsVoid(f.Type) {
		return fmt.Errorf("%w: field %d", ErrAnonymousField, idx)
	}
	if err := ctx.readType(f.Type, fieldpath.Access(dest, f.Name), indent); err != nil {
		if f.Name != "" {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		return err
	}
	scope.visible = idx + 1
	return nil
}

func (ctx *codeContext) readArray(a *prototypes.Array, dest string, indent int) error {
	length := fieldpath.Access(dest, "length")
	elements := fieldpath.Access(dest, "elements")
	elemSize := a.Elem.Size()

	if a.IsRest() {
		if elemSize.Bytes() == 0 {
			return ErrZeroSizeElement
		}
		ctx.appendCode(indent, "%s = size / %d;\n", length, elemSize)
		ctx.appendCode(indent, "size -= %s * %d;\n", length, elemSize)
	} else {
		if err := ctx.readCount(a.Count, length, indent); err != nil {
			return err
		}
		if isSignedCount(a.Count) {
			ctx.appendCode(indent, "if (%s < 0) return -1;\n", length)
		}
		if isWideCount(a.Count) {
			ctx.appendCode(indent, "if (%s > INT32_MAX) return -1;\n", length)
		}
		if !elemSize.IsVariable() && elemSize > 0 {
			ctx.appendCode(indent, "if ((int64_t)%s * %d > size) return -1;\n", length, elemSize)
			ctx.appendCode(indent, "size -= %s * %d;\n", length, elemSize)
		}
	}

	ctx.appendCode(indent, "%s = packet_arena_alloc_unlocked(arena, %s * sizeof(*%s));\n", elements, length, elements)
	ctx.appendCode(indent, "if (%s == NULL && %s != 0) return -1;\n", elements, length)

	loopVar := ctx.gen.loopVar()
	ctx.appendCode(indent, "for (int %s = 0; %s < %s; %s++) {\n", loopVar, loopVar, length, loopVar)
	if err := ctx.readType(a.Elem, fmt.Sprintf("%s[%s]", elements, loopVar), indent+1); err != nil {
		return err
	}
	ctx.appendCode(indent, "}\n")
	return nil
}

func (ctx *codeContext) readCount(count prototypes.Type, length string, indent int) error {
	size := count.Size()
	if size.IsVariable() {
		return ctx.readType(count, length, indent)
	}
	ctx.appendCode(indent, "if (size < %d) return -1;\n", size)
	if err := ctx.readType(count, length, indent); err != nil {
		return err
	}
	ctx.appendCode(indent, "size -= %d;\n", size)
	return nil
}

// readBitfield loads the container integer once and extracts the members from the least
// significant bit upwards.
func (ctx *codeContext) readBitfield(b *prototypes.Bitfield, dest string, indent int) {
	bits := b.ContainerBits()
	if bits == 0 {
		return
	}
	packed := ctx.gen.packedVar()
	offsets := b.Offsets()

	ctx.appendCode(indent, "{\n")
	ctx.appendCode(indent+1, "uint%d_t %s = protocol_read_u%d(data);\n", bits, packed, bits)
	ctx.appendCode(indent+1, "data += %d;\n", bits/8)
	for i, f := range b.Fields {
		member := fieldpath.Access(dest, f.Name)
		mask := bitMask(f.Width)
		if f.Signed && f.Width < 64 {
			sign := uint64(1) << (f.Width - 1)
			ctx.appendCode(indent+1, "%s = (%s)((((%s >> %d) & %s) ^ %s) - %s);\n",
				member, intCType(bitfieldMemberBits(f.Width), true), packed, offsets[i], mask, hexConst(sign), hexConst(sign))
		} else {
			ctx.appendCode(indent+1, "%s = (%s >> %d) & %s;\n", member, packed, offsets[i], mask)
		}
	}
	ctx.appendCode(indent, "}\n")
}

func bitMask(width int) string {
	if width >= 64 {
		return "0xffffffffffffffffull"
	}
	return hexConst((uint64(1) << width) - 1)
}

func hexConst(v uint64) string {
	if v > 0xffffffff {
		return fmt.Sprintf("%#xull", v)
	}
	return fmt.Sprintf("%#x", v)
}

func (ctx *codeContext) readOption(o *prototypes.Option, dest string, indent int) error {
	present := fieldpath.Access(dest, "present")

	ctx.appendCode(indent, "if (size < 1) return -1;\n")
	ctx.appendCode(indent, "%s = protocol_read_u8(data);\n", present)
	ctx.appendCode(indent, "data += 1;\n")
	ctx.appendCode(indent, "size -= 1;\n")
	ctx.appendCode(indent, "if (%s) {\n", present)
	if err := ctx.readPayload(o.Elem, fieldpath.Access(dest, "value"), indent+1, true); err != nil {
		return err
	}
	ctx.appendCode(indent, "}\n")
	return nil
}

// readPayload emits a conditionally present value. When checked is set, a fixed-size payload
// gets its own capacity check.
func (ctx *codeContext) readPayload(t prototypes.Type, dest string, indent int, checked bool) error {
	size := t.Size()
	guard := checked && !size.IsVariable() && size > 0
	if guard {
		ctx.appendCode(indent, "if (size < %d) return -1;\n", size)
	}
	if err := ctx.readType(t, dest, indent); err != nil {
		return err
	}
	if guard {
		ctx.appendCode(indent, "size -= %d;\n", size)
	}
	return nil
}

func (ctx *codeContext) readUnion(u *prototypes.Union, dest string, indent int) error {
	return ctx.emitUnion(u, dest, indent, ctx.readPayload)
}
