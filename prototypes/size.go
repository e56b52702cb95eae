// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package prototypes models every construct of a protodef schema as a closed set of type
// variants (native, alias, struct, array, bitfield, option, union, void) together with the
// encoded size class of each node and the shared type table used while resolving a schema.
package prototypes

import "strconv"

// Size is the encoded size class of a type.
//
// A non-negative value is a fixed byte count known at generation time. Variable marks a
// data-dependent size that has to be computed while decoding.
type Size int

// Variable is the size class of types whose encoded length depends on the data.
const Variable Size = -1

// Fixed returns the size class for a fixed encoded length of n bytes.
func Fixed(n int) Size {
	if n < 0 {
		return Variable
	}
	return Size(n)
}

// IsVariable reports whether the size is data-dependent.
func (s Size) IsVariable() bool {
	return s < 0
}

// Bytes returns the fixed byte count, or 0 for variable sizes.
func (s Size) Bytes() int {
	if s < 0 {
		return 0
	}
	return int(s)
}

// Add combines two size classes of consecutive encodings. The result is variable as soon as
// one of the operands is variable.
func (s Size) Add(o Size) Size {
	if s.IsVariable() || o.IsVariable() {
		return Variable
	}
	return s + o
}

func (s Size) String() string {
	if s.IsVariable() {
		return "variable"
	}
	return strconv.Itoa(int(s))
}
