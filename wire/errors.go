// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package wire is the reference runtime codec of resolved protodef types. It decodes and
// encodes packets with the same wire rules as the generated C procedures and dispatches
// decoded packets by connection state and packet id.
package wire

import "errors"

var (
	ErrUnexpectedEOF  = errors.New("unexpected end of packet")
	ErrShortBuffer    = errors.New("output buffer too small")
	ErrInvalidVarint  = errors.New("varint is too long")
	ErrInvalidValue   = errors.New("invalid value")
	ErrInvalidLength  = errors.New("negative array length")
	ErrInvalidVariant = errors.New("no union alternative matches the discriminant")
	ErrMissingValue   = errors.New("missing member value")
	ErrArenaExhausted = errors.New("packet arena exhausted")
	ErrUnsupported    = errors.New("type has no reference codec")
	ErrUnknownPacket  = errors.New("unknown packet id")
	ErrUnknownState   = errors.New("unknown connection state")
	ErrLengthMismatch = errors.New("packet length does not match the decoded size")
	ErrDuplicateRoute = errors.New("packet id already registered")
)
