// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"fmt"
	"strconv"

	"github.com/pk910/protodefc/fieldpath"
	"github.com/pk910/protodefc/prototypes"
)

// newScope makes one struct level visible to discriminant references. view holds the
// members that have been decoded or encoded so far.
func newScope(view *Record, path string) fieldpath.Scope[any] {
	return fieldpath.Scope[any]{
		Path:   path,
		Lookup: view.Get,
	}
}

func descendValue(v any, name string) (any, bool) {
	rec, ok := v.(*Record)
	if !ok {
		return nil, false
	}
	return rec.Get(name)
}

// selectCase picks the alternative of u for the current discriminant value. Cases are tried
// in declaration order; the default applies when none matches.
func selectCase(scopes []fieldpath.Scope[any], u *prototypes.Union) (*prototypes.Case, error) {
	if u.IsTemplate() || u.CompareTo == "" {
		return nil, fmt.Errorf("%w: unbound union", ErrUnsupported)
	}
	target, err := fieldpath.Resolve(scopes, u.CompareTo, descendValue)
	if err != nil {
		return nil, err
	}

	for i := range u.Cases {
		match, err := caseMatches(target.Value, u.Cases[i].Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.CompareTo, err)
		}
		if match {
			return &u.Cases[i], nil
		}
	}
	if u.Default != nil {
		return u.Default, nil
	}
	return nil, fmt.Errorf("%w: %s = %v", ErrInvalidVariant, u.CompareTo, target.Value)
}

// caseMatches compares a discriminant value with the literal value of a case. Strings and
// byte arrays compare by content; integers compare numerically, so "0x10" matches 16.
func caseMatches(disc any, value string) (bool, error) {
	switch d := disc.(type) {
	case string:
		return d == value, nil
	case []byte:
		return string(d) == value, nil
	case bool:
		switch value {
		case "true":
			return d, nil
		case "false":
			return !d, nil
		}
		return false, fmt.Errorf("%w: boolean case %q", ErrInvalidValue, value)
	}

	if signed, ok := toInt64(disc); ok {
		if v, err := strconv.ParseInt(value, 0, 64); err == nil {
			return signed == v, nil
		}
		if v, err := strconv.ParseUint(value, 0, 64); err == nil {
			return signed >= 0 && uint64(signed) == v, nil
		}
		return false, fmt.Errorf("%w: integer case %q", ErrInvalidValue, value)
	}
	if unsigned, ok := toUint64(disc); ok {
		if v, err := strconv.ParseUint(value, 0, 64); err == nil {
			return unsigned == v, nil
		}
		if _, err := strconv.ParseInt(value, 0, 64); err == nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: integer case %q", ErrInvalidValue, value)
	}
	return false, fmt.Errorf("%w: discriminant of type %T", ErrInvalidValue, disc)
}

// toInt64 converts signed integers.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// toUint64 converts unsigned integers.
func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}
