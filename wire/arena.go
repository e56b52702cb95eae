// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package wire

import (
	"fmt"
	"sync"
)

// DefaultArenaLimit bounds the allocations of one packet decode. It matches the largest
// payload a length-prefixed packet can carry.
const DefaultArenaLimit = 1<<21 - 1

// Arena accounts the variable-length allocations of one packet decode. An arena is used by
// one decode at a time and released as a whole once the packet has been handled.
type Arena struct {
	limit int
	used  int
}

// NewArena creates an arena that admits limit bytes. A limit <= 0 admits everything.
func NewArena(limit int) *Arena {
	return &Arena{limit: limit}
}

// Alloc reserves n bytes. A nil arena admits everything.
func (a *Arena) Alloc(n int) error {
	if a == nil || n <= 0 {
		return nil
	}
	if a.limit > 0 && (n > a.limit || a.used > a.limit-n) {
		return fmt.Errorf("%w: %d + %d bytes exceed %d", ErrArenaExhausted, a.used, n, a.limit)
	}
	a.used += n
	return nil
}

// Used returns the number of reserved bytes.
func (a *Arena) Used() int {
	return a.used
}

// Reset releases all reservations.
func (a *Arena) Reset() {
	a.used = 0
}

// ArenaPool hands out reusable arenas.
type ArenaPool struct {
	pool sync.Pool
}

// NewArenaPool creates a pool of arenas admitting limit bytes each.
func NewArenaPool(limit int) *ArenaPool {
	return &ArenaPool{
		pool: sync.Pool{
			New: func() interface{} {
				return NewArena(limit)
			},
		},
	}
}

// Get returns an empty arena.
func (p *ArenaPool) Get() *Arena {
	return p.pool.Get().(*Arena)
}

// Put releases an arena back to the pool.
func (p *ArenaPool) Put(a *Arena) {
	if a == nil {
		return
	}
	a.Reset()
	p.pool.Put(a)
}
