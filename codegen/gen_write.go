// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

// writeType emits the encode of src. It mirrors readType, including who checks capacity.
func (ctx *codeContext) writeType(t prototypes.Type, src string, indent int) error {
	switch t := t.(type) {
	case *prototypes.Native:
		if t.Size().IsVariable() {
			ctx.appendCode(indent, "write_size = protocol_write_%s(data, size, %s);\n", t.Name, src)
			ctx.appendCode(indent, "if (write_size < 0) return -1;\n")
			ctx.appendCode(indent, "data += write_size;\n")
			ctx.appendCode(indent, "size -= write_size;\n")
		} else {
			ctx.appendCode(indent, "protocol_write_%s(data, %s);\n", t.Name, src)
			ctx.appendCode(indent, "data += %d;\n", t.Size())
		}
	case *prototypes.Alias:
		if isTemplate(t) {
			return fmt.Errorf("%w: %s", ErrTemplateUse, t.Name)
		}
		if t.Size().IsVariable() {
			ctx.appendCode(indent, "write_size = protocol_write_%s(data, size, &%s);\n", t.Name, src)
			ctx.appendCode(indent, "if (write_size < 0) return -1;\n")
			ctx.appendCode(indent, "data += write_size;\n")
			ctx.appendCode(indent, "size -= write_size;\n")
		} else if t.Size() > 0 {
			ctx.appendCode(indent, "protocol_write_%s(data, &%s);\n", t.Name, src)
			ctx.appendCode(indent, "data += %d;\n", t.Size())
		}
	case *prototypes.Void:
	case *prototypes.Struct:
		return ctx.writeStruct(t, src, indent)
	case *prototypes.Array:
		return ctx.writeArray(t, src, indent)
	case *prototypes.Bitfield:
		ctx.writeBitfield(t, src, indent)
	case *prototypes.Option:
		return ctx.writeOption(t, src, indent)
	case *prototypes.Union:
		return ctx.emitUnion(t, src, indent, ctx.writePayload)
	default:
		return fmt.Errorf("cannot write %T", t)
	}
	return nil
}

func (ctx *codeContext) writeStruct(s *prototypes.Struct, src string, indent int) error {
	scope := ctx.pushStruct(s, src)
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
				if err := ctx.writeField(scope, idx, src, indent); err != nil {
					return err
				}
			}
			if checked && total > 0 {
				ctx.appendCode(indent, "size -= %d;\n", total)
			}
		}

		if idx < len(s.Fields) {
			if err := ctx.writeField(scope, idx, src, indent); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

func (ctx *codeContext) writeField(scope *structScope, idx int, src string, indent int) error {
	f := scope.s.Fields[idx]
	if f.Name == "" && !prototypes.IsAggregate(f.Type) && !prototypes.IsVoid(f.Type) {
		return fmt.Errorf("%w: field %d", ErrAnonymousField, idx)
	}
	if err := ctx.writeType(f.Type, fieldpath.Access(src, f.Name), indent); err != nil {
		if f.Name != "" {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		return err
	}
	scope.visible = idx + 1
	return nil
}

func (ctx *codeContext) writeArray(a *prototypes.Array, src string, indent int) error {
	length := fieldpath.Access(src, "length")
	elements := fieldpath.Access(src, "elements")
	elemSize := a.Elem.Size()

	if a.IsRest() {
		if elemSize.Bytes() == 0 {
			return ErrZeroSizeElement
		}
		ctx.appendCode(indent, "if (%s < 0) return -1;\n", length)
	} else {
		if isSignedCount(a.Count) {
			ctx.appendCode(indent, "if (%s < 0) return -1;\n", length)
		}
		if isWideCount(a.Count) {
			ctx.appendCode(indent, "if (%s > INT32_MAX) return -1;\n", length)
		}
		if size := a.Count.Size(); size.IsVariable() {
			if err := ctx.writeType(a.Count, length, indent); err != nil {
				return err
			}
		} else {
			ctx.appendCode(indent, "if (size < %d) return -1;\n", size)
			if err := ctx.writeType(a.Count, length, indent); err != nil {
				return err
			}
			ctx.appendCode(indent, "size -= %d;\n", size)
		}
	}

	if !elemSize.IsVariable() && elemSize > 0 {
		ctx.appendCode(indent, "if ((int64_t)%s * %d > size) return -1;\n", length, elemSize)
		ctx.appendCode(indent, "size -= %s * %d;\n", length, elemSize)
	}

	loopVar := ctx.gen.loopVar()
	ctx.appendCode(indent, "for (int %s = 0; %s < %s; %s++) {\n", loopVar, loopVar, length, loopVar)
	if err := ctx.writeType(a.Elem, fmt.Sprintf("%s[%s]", elements, loopVar), indent+1); err != nil {
		return err
	}
	ctx.appendCode(indent, "}\n")
	return nil
}

func (ctx *codeContext) writeBitfield(b *prototypes.Bitfield, src string, indent int) {
	bits := b.ContainerBits()
	if bits == 0 {
		return
	}
	packed := ctx.gen.packedVar()
	offsets := b.Offsets()

	ctx.appendCode(indent, "{\n")
	ctx.appendCode(indent+1, "uint%d_t %s = 0;\n", bits, packed)
	for i, f := range b.Fields {
		ctx.appendCode(indent+1, "%s |= ((uint%d_t)%s & %s) << %d;\n",
			packed, bits, fieldpath.Access(src, f.Name), bitMask(f.Width), offsets[i])
	}
	ctx.appendCode(indent+1, "protocol_write_u%d(data, %s);\n", bits, packed)
	ctx.appendCode(indent+1, "data += %d;\n", bits/8)
	ctx.appendCode(indent, "}\n")
}

func (ctx *codeContext) writeOption(o *prototypes.Option, src string, indent int) error {
	present := fieldpath.Access(src, "present")

	ctx.appendCode(indent, "if (size < 1) return -1;\n")
	ctx.appendCode(indent, "protocol_write_u8(data, %s);\n", present)
	ctx.appendCode(indent, "data += 1;\n")
	ctx.appendCode(indent, "size -= 1;\n")
	ctx.appendCode(indent, "if (%s) {\n", present)
	if err := ctx.writePayload(o.Elem, fieldpath.Access(src, "value"), indent+1, true); err != nil {
		return err
	}
	ctx.appendCode(indent, "}\n")
	return nil
}

func (ctx *codeContext) writePayload(t prototypes.Type, src string, indent int, checked bool) error {
	size := t.Size()
	guard := checked && !size.IsVariable() && size > 0
	if guard {
		ctx.appendCode(indent, "if (size < %d) return -1;\n", size)
	}
	if err := ctx.writeType(t, src, indent); err != nil {
		return err
	}
	if guard {
		ctx.appendCode(indent, "size -= %d;\n", size)
	}
	return nil
}
