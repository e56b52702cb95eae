// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"
	"strings"

	"github.com/pk910/protodefc/prototypes"
)

// procedures holds the rendered code of one named type.
type procedures struct {
	typedef    string
	readProto  string
	readCode   string
	writeProto string
	writeCode  string
}

func isTemplate(t prototypes.Type) bool {
	u, ok := prototypes.Unalias(t).(*prototypes.Union)
	return ok && u.IsTemplate()
}

// generateProcedures renders the typedef and the read/write procedures of name. The body of
// t is emitted inline, so t is the definition of name and not an alias to it.
func (g *Generator) generateProcedures(name string, t prototypes.Type, withWrite bool) (*procedures, error) {
	typedef, err := generateTypedef(name, t)
	if err != nil {
		return nil, err
	}
	p := &procedures{typedef: typedef}

	p.readProto, p.readCode, err = g.generateRead(name, t)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if withWrite {
		p.writeProto, p.writeCode, err = g.generateWrite(name, t)
		if err != nil {
			return nil, fmt.Errorf("write: %w", err)
		}
	}
	return p, nil
}

func (g *Generator) generateRead(name string, t prototypes.Type) (string, string, error) {
	body := strings.Builder{}
	ctx := newCodeContext(g, &body)
	if err := ctx.readType(t, rootPath(t), 1); err != nil {
		return "", "", err
	}

	code := strings.Builder{}
	var proto string
	if t.Size().IsVariable() {
		proto = fmt.Sprintf("int protocol_read_%s(packet_arena_t* arena, uint8_t* data, int size, %s_t* packet)", name, name)
		appendCode(&code, 0, "%s {\n", proto)
		appendCode(&code, 1, "(void)arena;\n")
		appendCode(&code, 1, "int original_size = size;\n")
		appendCode(&code, 1, "int read_size = 0;\n")
		appendCode(&code, 1, "(void)read_size;\n")
		code.WriteString(body.String())
		appendCode(&code, 1, "return original_size - size;\n")
		appendCode(&code, 0, "}")
	} else {
		proto = fmt.Sprintf("%s_t protocol_read_%s(uint8_t* data)", name, name)
		appendCode(&code, 0, "%s {\n", proto)
		appendCode(&code, 1, "%s_t value = { 0 };\n", name)
		appendCode(&code, 1, "%s_t* packet = &value;\n", name)
		if body.Len() == 0 {
			appendCode(&code, 1, "(void)data;\n")
			appendCode(&code, 1, "(void)packet;\n")
		}
		code.WriteString(body.String())
		appendCode(&code, 1, "return value;\n")
		appendCode(&code, 0, "}")
	}
	return proto + ";", code.String(), nil
}

func (g *Generator) generateWrite(name string, t prototypes.Type) (string, string, error) {
	body := strings.Builder{}
	ctx := newCodeContext(g, &body)
	if err := ctx.writeType(t, rootPath(t), 1); err != nil {
		return "", "", err
	}

	code := strings.Builder{}
	var proto string
	if t.Size().IsVariable() {
		proto = fmt.Sprintf("int protocol_write_%s(uint8_t* data, int size, %s_t* packet)", name, name)
		appendCode(&code, 0, "%s {\n", proto)
		appendCode(&code, 1, "int original_size = size;\n")
		appendCode(&code, 1, "int write_size = 0;\n")
		appendCode(&code, 1, "(void)write_size;\n")
		code.WriteString(body.String())
		appendCode(&code, 1, "return original_size - size;\n")
		appendCode(&code, 0, "}")
	} else {
		proto = fmt.Sprintf("void protocol_write_%s(uint8_t* data, %s_t* packet)", name, name)
		appendCode(&code, 0, "%s {\n", proto)
		if body.Len() == 0 {
			appendCode(&code, 1, "(void)data;\n")
			appendCode(&code, 1, "(void)packet;\n")
		}
		code.WriteString(body.String())
		appendCode(&code, 0, "}")
	}
	return proto + ";", code.String(), nil
}
