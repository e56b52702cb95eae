// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"
	"strings"

	"github.com/pk910/protodefc/prototypes"
)

// typeDef renders the in-memory representation of t as a C type expression. Aggregates
// render as multi-line anonymous struct/union bodies; named types refer to their typedef.
func typeDef(t prototypes.Type) (string, error) {
	switch t := t.(type) {
	case *prototypes.Native:
		return t.CType, nil
	case *prototypes.Alias:
		if isTemplate(t) {
			return "", fmt.Errorf("%w: %s", ErrTemplateUse, t.Name)
		}
		return t.Name + "_t", nil
	case *prototypes.Void:
		return "struct {\n\tchar _empty;\n}", nil
	case *prototypes.Struct:
		members := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			if prototypes.IsVoid(f.Type) {
				continue
			}
			def, err := typeDef(f.Type)
			if err != nil {
				return "", fmt.Errorf("%s: %w", f.Name, err)
			}
			members = append(members, memberDecl(def, f.Name))
		}
		return aggregateDef("struct", members), nil
	case *prototypes.Union:
		if t.IsTemplate() {
			return "", ErrTemplateUse
		}
		alts := t.Alternatives()
		members := make([]string, 0, len(alts))
		for _, c := range alts {
			if prototypes.IsVoid(c.Type) {
				continue
			}
			def, err := typeDef(c.Type)
			if err != nil {
				return "", fmt.Errorf("%s: %w", c.Name, err)
			}
			members = append(members, memberDecl(def, c.Name))
		}
		return aggregateDef("union", members), nil
	case *prototypes.Bitfield:
		members := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			members = append(members, memberDecl(intCType(bitfieldMemberBits(f.Width), f.Signed), f.Name))
		}
		return aggregateDef("struct", members), nil
	case *prototypes.Array:
		count := "int"
		if !t.IsRest() {
			def, err := typeDef(t.Count)
			if err != nil {
				return "", err
			}
			count = def
		}
		elem, err := typeDef(t.Elem)
		if err != nil {
			return "", err
		}
		return aggregateDef("struct", []string{
			memberDecl(count, "length"),
			memberDecl(elem+"*", "elements"),
		}), nil
	case *prototypes.Option:
		members := []string{memberDecl("bool", "present")}
		if !prototypes.IsVoid(t.Elem) {
			def, err := typeDef(t.Elem)
			if err != nil {
				return "", err
			}
			members = append(members, memberDecl(def, "value"))
		}
		return aggregateDef("struct", members), nil
	}
	return "", fmt.Errorf("cannot define %T", t)
}

func aggregateDef(keyword string, members []string) string {
	if len(members) == 0 {
		members = []string{"char _empty;"}
	}
	var sb strings.Builder
	sb.WriteString(keyword)
	sb.WriteString(" {\n")
	for _, m := range members {
		sb.WriteString(indentStr(m, 1))
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// generateTypedef renders the typedef declaration of the named type.
func generateTypedef(name string, t prototypes.Type) (string, error) {
	def, err := typeDef(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("typedef %s %s_t;", def, name), nil
}
