// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// BufferEncoder writes big-endian primitives into a fixed byte slice. Every write checks the
// remaining capacity first and fails with ErrShortBuffer without writing anything.
//
// A counting encoder has no buffer and only tracks the encoded length.
type BufferEncoder struct {
	buffer   []byte
	pos      int
	counting bool
}

// NewBufferEncoder creates an encoder writing into buffer[:len(buffer)].
func NewBufferEncoder(buffer []byte) *BufferEncoder {
	return &BufferEncoder{
		buffer: buffer,
	}
}

func newCountingEncoder() *BufferEncoder {
	return &BufferEncoder{counting: true}
}

func (e *BufferEncoder) GetPosition() int {
	return e.pos
}

func (e *BufferEncoder) GetBuffer() []byte {
	return e.buffer[:e.pos]
}

// GetLength returns the remaining capacity. Counting encoders have unlimited capacity.
func (e *BufferEncoder) GetLength() int {
	if e.counting {
		return math.MaxInt
	}
	return len(e.buffer) - e.pos
}

func (e *BufferEncoder) reserve(n int) ([]byte, error) {
	if e.counting {
		e.pos += n
		return nil, nil
	}
	if e.GetLength() < n {
		return nil, ErrShortBuffer
	}
	b := e.buffer[e.pos : e.pos+n]
	e.pos += n
	return b, nil
}

func (e *BufferEncoder) EncodeUint8(v uint8) error {
	b, err := e.reserve(1)
	if b != nil {
		b[0] = v
	}
	return err
}

func (e *BufferEncoder) EncodeUint16(v uint16) error {
	b, err := e.reserve(2)
	if b != nil {
		binary.BigEndian.PutUint16(b, v)
	}
	return err
}

func (e *BufferEncoder) EncodeUint32(v uint32) error {
	b, err := e.reserve(4)
	if b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
	return err
}

func (e *BufferEncoder) EncodeUint64(v uint64) error {
	b, err := e.reserve(8)
	if b != nil {
		binary.BigEndian.PutUint64(b, v)
	}
	return err
}

func (e *BufferEncoder) EncodeBool(v bool) error {
	if v {
		return e.EncodeUint8(1)
	}
	return e.EncodeUint8(0)
}

func (e *BufferEncoder) EncodeFloat32(v float32) error {
	return e.EncodeUint32(math.Float32bits(v))
}

func (e *BufferEncoder) EncodeFloat64(v float64) error {
	return e.EncodeUint64(math.Float64bits(v))
}

func (e *BufferEncoder) EncodeUUID(v uuid.UUID) error {
	return e.EncodeBytes(v[:])
}

func (e *BufferEncoder) EncodeBytes(v []byte) error {
	b, err := e.reserve(len(v))
	if b != nil {
		copy(b, v)
	}
	return err
}

func (e *BufferEncoder) EncodeVarint(v int32) error {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(uint32(v)))
	return e.EncodeBytes(scratch[:n])
}

func (e *BufferEncoder) EncodeVarlong(v int64) error {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(v))
	return e.EncodeBytes(scratch[:n])
}
