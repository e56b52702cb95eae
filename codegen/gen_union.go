// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

type payloadFn func(t prototypes.Type, dest string, indent int, checked bool) error

// emitUnion emits the selection of the active alternative of u. String discriminants are
// compared by length and content in declaration order; scalar discriminants use a switch.
// Without a default alternative an unmatched value fails the procedure.
//
// A fixed-size union has been checked by its placer, so its alternatives are emitted without
// their own capacity checks.
func (ctx *codeContext) emitUnion(u *prototypes.Union, dest string, indent int, payload payloadFn) error {
	d, err := ctx.resolveDiscriminant(u)
	if err != nil {
		return fmt.Errorf("union in %s: %w", fieldpath.Parent(dest), err)
	}
	checked := u.Size().IsVariable()

	branch := func(c *prototypes.Case, indent int) error {
		if prototypes.IsVoid(c.Type) {
			return nil
		}
		if err := payload(c.Type, fieldpath.Access(dest, c.Name), indent, checked); err != nil {
			if c.Name != "" {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			return err
		}
		return nil
	}

	switch d.kind {
	case discriminantString:
		length := fieldpath.Access(d.path, "length")
		elements := fieldpath.Access(d.path, "elements")
		for i := range u.Cases {
			c := &u.Cases[i]
			keyword := "} else if"
			if i == 0 {
				keyword = "if"
			}
			ctx.appendCode(indent, "%s (%s == %d && memcmp(%s, %s, %d) == 0) {\n",
				keyword, length, len(c.Value), cString(c.Value), elements, len(c.Value))
			if err := branch(c, indent+1); err != nil {
				return err
			}
		}
		if len(u.Cases) > 0 {
			ctx.appendCode(indent, "} else {\n")
		} else {
			ctx.appendCode(indent, "{\n")
		}
		if u.Default != nil {
			if err := branch(u.Default, indent+1); err != nil {
				return err
			}
		} else {
			ctx.appendCode(indent+1, "return -1;\n")
		}
		ctx.appendCode(indent, "}\n")

	case discriminantScalar:
		ctx.appendCode(indent, "switch (%s) {\n", d.path)
		for i := range u.Cases {
			c := &u.Cases[i]
			value, err := caseValue(d, c.Value)
			if err != nil {
				return err
			}
			ctx.appendCode(indent, "case %s: {\n", value)
			if err := branch(c, indent+1); err != nil {
				return err
			}
			ctx.appendCode(indent, "} break;\n")
		}
		ctx.appendCode(indent, "default: {\n")
		if u.Default != nil {
			if err := branch(u.Default, indent+1); err != nil {
				return err
			}
		} else {
			ctx.appendCode(indent+1, "return -1;\n")
		}
		ctx.appendCode(indent, "} break;\n")
		ctx.appendCode(indent, "}\n")
	}
	return nil
}
