// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package prototypes

// BitField is one member of a Bitfield.
type BitField struct {
	Name   string
	Width  int
	Signed bool
}

// Bitfield packs its members into one integer. The first member occupies the least
// significant bits; the container width is the total bit count rounded up to 8, 16, 32 or 64.
type Bitfield struct {
	Fields []BitField
	bits   int
}

// NewBitfield creates an empty bitfield.
func NewBitfield() *Bitfield {
	return &Bitfield{}
}

// AddField appends a member of width bits. It fails once the total exceeds 64 bits.
func (b *Bitfield) AddField(name string, width int, signed bool) error {
	if width <= 0 {
		return ErrBitfieldWidth
	}
	if b.bits+width > 64 {
		return ErrBitfieldTooWide
	}
	b.Fields = append(b.Fields, BitField{Name: name, Width: width, Signed: signed})
	b.bits += width
	return nil
}

// Bits returns the sum of the member widths.
func (b *Bitfield) Bits() int {
	return b.bits
}

// ContainerBits returns the width of the integer holding all members.
func (b *Bitfield) ContainerBits() int {
	if len(b.Fields) == 0 {
		return 0
	}
	bits, _ := ContainerBits(b.bits)
	return bits
}

// Offsets returns the bit offset of every member in declaration order.
func (b *Bitfield) Offsets() []int {
	offsets := make([]int, len(b.Fields))
	offset := 0
	for i, f := range b.Fields {
		offsets[i] = offset
		offset += f.Width
	}
	return offsets
}

func (b *Bitfield) Kind() Kind { return KindBitfield }
func (b *Bitfield) Size() Size { return Fixed(b.ContainerBits() / 8) }
func (b *Bitfield) Clone() Type {
	c := &Bitfield{Fields: make([]BitField, len(b.Fields)), bits: b.bits}
	copy(c.Fields, b.Fields)
	return c
}
func (*Bitfield) isType() {}

// ContainerBits rounds a bit count up to the next integer width in {8, 16, 32, 64}.
func ContainerBits(bits int) (int, error) {
	switch {
	case bits > 64:
		return 0, ErrBitfieldTooWide
	case bits > 32:
		return 64, nil
	case bits > 16:
		return 32, nil
	case bits > 8:
		return 16, nil
	default:
		return 8, nil
	}
}
