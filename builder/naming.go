// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package builder

import (
	"strings"
	"unicode"
)

// SnakeCase converts a schema identifier to the target naming convention by inserting an
// underscore before every upper case letter except a leading one and lowering the result.
// Reference prefixes such as "../" pass through unchanged.
func SnakeCase(name string) string {
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Identifier turns a literal discriminant value into a valid member name suffix.
func Identifier(value string) string {
	var sb strings.Builder
	for _, r := range value {
		switch {
		case r == '-':
			sb.WriteString("neg")
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func caseName(value string) string {
	return "case_" + Identifier(value)
}

const defaultCaseName = "default_value"
