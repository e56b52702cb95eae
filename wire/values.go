// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

// Member is one named value of a Record.
type Member struct {
	Name  string
	Value any
}

// Record is the decoded value of a struct, bitfield or union. Members keep the wire order.
// Members of anonymous aggregates are merged into the enclosing record, the same way the
// generated C types expose them in the enclosing namespace. A union record holds only the
// members of the selected alternative.
type Record struct {
	Members []Member
}

// NewRecord creates a record from name/value pairs.
func NewRecord(members ...Member) *Record {
	return &Record{Members: members}
}

// Get returns the value of the member called name.
func (r *Record) Get(name string) (any, bool) {
	for i := range r.Members {
		if r.Members[i].Name == name {
			return r.Members[i].Value, true
		}
	}
	return nil, false
}

// Set replaces the value of name or appends it.
func (r *Record) Set(name string, value any) {
	for i := range r.Members {
		if r.Members[i].Name == name {
			r.Members[i].Value = value
			return
		}
	}
	r.Members = append(r.Members, Member{Name: name, Value: value})
}

// Merge copies all members of o into r.
func (r *Record) Merge(o *Record) {
	for _, m := range o.Members {
		r.Set(m.Name, m.Value)
	}
}

// Len returns the number of members.
func (r *Record) Len() int {
	return len(r.Members)
}

// Optional is the value of an option type. Value is nil for absent options and for present
// options of a void payload.
type Optional struct {
	Present bool
	Value   any
}
