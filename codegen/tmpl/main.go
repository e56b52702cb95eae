// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package tmpl

// Banner is the common head of both generated files.
type Banner struct {
	Generator   string
	Version     string
	Fingerprint string
	Includes    []string
}

// Header is the model of header.tmpl.
type Header struct {
	Banner
	Code string
}

// Source is the model of source.tmpl.
type Source struct {
	Banner
	HeaderName string
	Code       string
}
