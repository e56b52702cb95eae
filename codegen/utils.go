// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"
	"strconv"
	"strings"
)

// appendCode appends a formatted code string to a strings.Builder with proper indentation.
//
// Parameters:
//   - codeBuf: The strings.Builder to append the code to
//   - indent: The number of tab characters to prepend to each non-empty line
//   - code: The format string to append
//   - args: Optional arguments to format the code string
//
// Example:
//
//	codeBuf := strings.Builder{}
//	appendCode(&codeBuf, 1, "if (size < %d) return -1;\n", 4)
//	// Result: "\tif (size < 4) return -1;\n"
func appendCode(codeBuf *strings.Builder, indent int, code string, args ...any) {
	if len(args) > 0 {
		code = fmt.Sprintf(code, args...)
	}
	codeBuf.WriteString(indentStr(code, indent))
}

// indentStr indents each non-empty line in a string by the specified number of tab characters.
//
// Empty lines are left unchanged to preserve code structure.
func indentStr(s string, spaces int) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		if lines[i] != "" {
			lines[i] = strings.Repeat("\t", spaces) + lines[i]
		}
	}

	return strings.Join(lines, "\n")
}

// cString renders s as a C string literal.
//
// Printable ASCII is kept as is; everything else is written as an octal escape so the
// literal has exactly len(s) bytes.
func cString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '?':
			// avoid trigraphs
			sb.WriteString(`\?`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(`\` + strconv.FormatInt(int64(c)+01000, 8)[1:])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// memberDecl renders a member declaration of type def. def may span several lines; an empty
// name declares an anonymous member.
func memberDecl(def, name string) string {
	if name == "" {
		return def + ";"
	}
	return def + " " + name + ";"
}
