// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"runtime/debug"
)

// Version is the protodefc module version written into the generated file banners.
//
// It is taken from the build information: the main module version when protodefc-gen is
// built from this module, or the dependency version when the library is embedded elsewhere.
// Development builds report "unknown".
var Version = "unknown"

const modulePath = "github.com/pk910/protodefc"

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if info.Main.Path == modulePath && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
		return
	}
	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			Version = dep.Version
			break
		}
	}
}
