// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pk910/protodefc"
	"github.com/pk910/protodefc/config"
	"github.com/pk910/protodefc/internal/logging"
)

const usage = "usage: protodefc-gen [-config file] [-v] <schema.json> <header-out> <source-out>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("protodefc-gen", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, usage)
		flags.PrintDefaults()
	}
	var (
		configFile = flags.String("config", "", "YAML or TOML file overlaying the default configuration")
		verbose    = flags.Bool("v", false, "Verbose output")
	)
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() != 3 {
		flags.Usage()
		return 2
	}
	schemaFile, headerFile, sourceFile := flags.Arg(0), flags.Arg(1), flags.Arg(2)

	log := logging.Setup(stderr, logging.ProfileRuntime, *verbose)

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Error().Err(err).Msg("failed to load config")
			return 1
		}
	}

	doc, err := os.ReadFile(schemaFile)
	if err != nil {
		log.Error().Err(err).Str("schema", schemaFile).Msg("failed to read schema")
		return 1
	}

	result, err := protodefc.NewCompiler(protodefc.WithConfig(cfg), protodefc.WithLogger(log)).Compile(doc)
	if err != nil {
		log.Error().Err(err).Str("schema", schemaFile).Msg("failed to compile schema")
		return 1
	}

	header, source, err := result.Render(filepath.Base(headerFile))
	if err != nil {
		log.Error().Err(err).Msg("failed to render output")
		return 1
	}

	if err := writeFileAtomic(headerFile, []byte(header)); err != nil {
		log.Error().Err(err).Str("file", headerFile).Msg("failed to write declarations")
		return 1
	}
	if err := writeFileAtomic(sourceFile, []byte(source)); err != nil {
		log.Error().Err(err).Str("file", sourceFile).Msg("failed to write implementation")
		return 1
	}

	log.Debug().Str("header", headerFile).Str("source", sourceFile).Str("schema", result.Fingerprint).Msg("output written")
	fmt.Fprintf(stdout, "Generated %d types and %d phases into %s and %s\n", len(result.Types), len(result.Phases), headerFile, sourceFile)
	return 0
}

// writeFileAtomic replaces path with data through a temporary file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
