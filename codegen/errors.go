// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import "errors"

var (
	ErrMissingDiscriminant = errors.New("union has no discriminant binding")
	ErrDiscriminantType    = errors.New("unsupported discriminant")
	ErrTemplateUse         = errors.New("abstract union template used directly")
	ErrAnonymousField      = errors.New("anonymous member must be a struct, union or bitfield")
	ErrZeroSizeElement     = errors.New("rest-of-buffer array element has no size")
	ErrFilterResult        = errors.New("packet filter must evaluate to a boolean")
)
