// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package protodefc

import (
	"github.com/rs/zerolog"

	"github.com/pk910/protodefc/config"
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithConfig sets the generator configuration. Without it the built-in defaults apply.
func WithConfig(cfg *config.Config) Option {
	return func(c *Compiler) {
		c.config = cfg
	}
}

// WithLogger sets the logger that receives resolution and generation diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}
