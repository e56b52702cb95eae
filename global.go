// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package protodefc

import "github.com/pk910/protodefc/config"

var globalCompiler *Compiler

// GetGlobalCompiler returns the shared compiler, creating it with the defaults on first use.
func GetGlobalCompiler() *Compiler {
	if globalCompiler == nil {
		globalCompiler = NewCompiler()
	}
	return globalCompiler
}

// SetGlobalConfig replaces the shared compiler with one using cfg.
func SetGlobalConfig(cfg *config.Config) {
	globalCompiler = NewCompiler(WithConfig(cfg))
}

// Compile compiles doc with the shared compiler.
func Compile(doc []byte) (*Result, error) {
	return GetGlobalCompiler().Compile(doc)
}
