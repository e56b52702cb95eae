// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

const (
	maxVarintLen  = 5
	maxVarlongLen = 10
)

// BufferDecoder reads big-endian primitives from a byte slice. Every read checks the
// remaining length first and fails with ErrUnexpectedEOF without consuming anything.
type BufferDecoder struct {
	buffer   []byte
	position int
}

func NewBufferDecoder(buffer []byte) *BufferDecoder {
	return &BufferDecoder{
		buffer: buffer,
	}
}

func (d *BufferDecoder) GetPosition() int {
	return d.position
}

func (d *BufferDecoder) GetLength() int {
	return len(d.buffer) - d.position
}

func (d *BufferDecoder) take(n int) ([]byte, error) {
	if n < 0 || d.GetLength() < n {
		return nil, ErrUnexpectedEOF
	}
	b := d.buffer[d.position : d.position+n]
	d.position += n
	return b, nil
}

func (d *BufferDecoder) DecodeUint8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *BufferDecoder) DecodeUint16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *BufferDecoder) DecodeUint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *BufferDecoder) DecodeUint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *BufferDecoder) DecodeBool() (bool, error) {
	v, err := d.DecodeUint8()
	if err != nil {
		return false, err
	}
	if v > 1 {
		d.position--
		return false, ErrInvalidValue
	}
	return v == 1, nil
}

func (d *BufferDecoder) DecodeFloat32() (float32, error) {
	v, err := d.DecodeUint32()
	return math.Float32frombits(v), err
}

func (d *BufferDecoder) DecodeFloat64() (float64, error) {
	v, err := d.DecodeUint64()
	return math.Float64frombits(v), err
}

func (d *BufferDecoder) DecodeUUID() (uuid.UUID, error) {
	b, err := d.take(16)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.FromBytes(b)
}

// DecodeBytes returns a copy of the next n bytes.
func (d *BufferDecoder) DecodeBytes(n int) ([]byte, error) {
	b, err := d.take(n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (d *BufferDecoder) decodeUvarint(maxLen int) (uint64, error) {
	end := d.position + maxLen
	if end > len(d.buffer) {
		end = len(d.buffer)
	}
	v, n := binary.Uvarint(d.buffer[d.position:end])
	switch {
	case n == 0 && end-d.position == maxLen:
		return 0, ErrInvalidVarint
	case n == 0:
		return 0, ErrUnexpectedEOF
	case n < 0:
		return 0, ErrInvalidVarint
	}
	d.position += n
	return v, nil
}

// DecodeVarint reads a VarInt: up to five 7-bit groups, least significant group first,
// holding the two's complement bits of an int32.
func (d *BufferDecoder) DecodeVarint() (int32, error) {
	pos := d.position
	v, err := d.decodeUvarint(maxVarintLen)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		d.position = pos
		return 0, ErrInvalidVarint
	}
	return int32(uint32(v)), nil
}

// DecodeVarlong reads a VarLong, the 64-bit variant of DecodeVarint.
func (d *BufferDecoder) DecodeVarlong() (int64, error) {
	v, err := d.decodeUvarint(maxVarlongLen)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}
