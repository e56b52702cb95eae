// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package prototypes

import (
	"errors"
	"fmt"
)

var (
	ErrBitfieldTooWide  = errors.New("too many bits in bitfield (max 64)")
	ErrBitfieldWidth    = errors.New("bitfield member width must be positive")
	ErrAlreadyBound     = errors.New("union discriminant already bound")
	ErrNotTemplate      = errors.New("union is not an abstract template")
	ErrMissingCompareTo = errors.New("missing discriminant name")
	ErrRestElemVariable = errors.New("rest-of-buffer array requires a fixed-size element")
	ErrDuplicateType    = errors.New("type already registered")
)

// TypeNotFoundError is returned for references to names that are not in the type table (yet).
type TypeNotFoundError struct {
	Name string
}

func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("type %q not found", e.Name)
}
