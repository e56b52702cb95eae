// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package fieldpath composes the access paths used by generated code to reach struct members,
// and resolves discriminant references ("../" hops, "/" descents) against a chain of
// enclosing struct scopes.
package fieldpath

import (
	"errors"
	"fmt"
	"strings"
)

// UpLevel is the reference prefix that moves one struct level up.
const UpLevel = "../"

var (
	ErrFieldNotFound = errors.New("could not find field")
	ErrNoScope       = errors.New("reference leaves the outermost struct")
)

// Access returns the path of member field of the value addressed by path.
//
// A bare root identifier (e.g. "packet") denotes a pointer and is followed with "->"; a path
// that is already dereferenced or indexed denotes a value and is followed with ".". An empty
// field name addresses an anonymous member, which lives in the parent slot itself.
func Access(path, field string) string {
	if field == "" {
		return path
	}
	if isValuePath(path) {
		return path + "." + field
	}
	return path + "->" + field
}

func isValuePath(path string) bool {
	return strings.Contains(path, "->") || strings.ContainsAny(path, "[*.")
}

// Parent strips the last member segment of path. Root paths are returned unchanged.
func Parent(path string) string {
	dot := strings.LastIndex(path, ".")
	arrow := strings.LastIndex(path, "->")
	cut := dot
	if arrow > cut {
		cut = arrow
	}
	if cut <= 0 {
		return path
	}
	return path[:cut]
}

// Split breaks a reference into the number of "../" hops and the member segments below the
// addressed scope.
func Split(ref string) (up int, segments []string) {
	for strings.HasPrefix(ref, UpLevel) {
		ref = ref[len(UpLevel):]
		up++
	}
	if ref == "" {
		return up, nil
	}
	return up, strings.Split(ref, "/")
}

// Scope is one enclosing struct level visible to a reference. Scopes are ordered outermost
// first; the last scope is the innermost struct.
type Scope[T any] struct {
	Path   string
	Lookup func(name string) (T, bool)
}

// Target is the resolved member of a reference.
type Target[T any] struct {
	Path  string // access path of the member
	Name  string // last member segment
	Value T      // whatever the scope lookup attached to the member
	Depth int    // index of the scope that owns the first segment
}

// Resolve follows ref through scopes. descend is used for segments after the first and may be
// nil when references never descend into members.
func Resolve[T any](scopes []Scope[T], ref string, descend func(T, string) (T, bool)) (Target[T], error) {
	var target Target[T]

	up, segments := Split(ref)
	if len(segments) == 0 {
		return target, fmt.Errorf("%w: empty reference %q", ErrFieldNotFound, ref)
	}

	depth := len(scopes) - 1 - up
	if depth < 0 {
		return target, fmt.Errorf("%w: %q", ErrNoScope, ref)
	}

	scope := scopes[depth]
	value, ok := scope.Lookup(segments[0])
	if !ok {
		return target, fmt.Errorf("%w %q", ErrFieldNotFound, ref)
	}
	path := Access(scope.Path, segments[0])

	for _, seg := range segments[1:] {
		if descend == nil {
			return target, fmt.Errorf("%w %q", ErrFieldNotFound, ref)
		}
		value, ok = descend(value, seg)
		if !ok {
			return target, fmt.Errorf("%w %q", ErrFieldNotFound, ref)
		}
		path = Access(path, seg)
	}

	target.Path = path
	target.Name = segments[len(segments)-1]
	target.Value = value
	target.Depth = depth
	return target, nil
}
