// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package protodefc compiles protodef protocol schemas into C read/write procedures and a
// packet dispatcher.
//
// A compile run loads the schema document, resolves its named types, builds the
// client-to-server packets of every configured phase and emits two texts: a declarations
// listing and an implementation listing. The same input always produces byte-identical
// output.
//
// Example usage:
//
//	compiler := protodefc.NewCompiler(protodefc.WithConfig(cfg))
//	result, err := compiler.Compile(schemaJSON)
//	if err != nil {
//	    return err
//	}
//	header, source, err := result.Render("protocol.h")
//
// The resolved packets can also be decoded at runtime through the reference codec:
//
//	dispatcher, err := result.NewDispatcher(handlePacket)
//	err = dispatcher.Dispatch(ctx, "status", data)
package protodefc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pk910/protodefc/builder"
	"github.com/pk910/protodefc/codegen"
	"github.com/pk910/protodefc/config"
	"github.com/pk910/protodefc/prototypes"
	"github.com/pk910/protodefc/schema"
	"github.com/pk910/protodefc/wire"
)

// Compiler turns schema documents into generated code. A Compiler holds no per-run state and
// can be reused for any number of documents.
type Compiler struct {
	config *config.Config
	log    zerolog.Logger
}

// NewCompiler creates a compiler. Without options it uses the built-in configuration and
// discards all diagnostics.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config == nil {
		c.config = config.Default()
	}
	return c
}

// Config returns the configuration the compiler runs with.
func (c *Compiler) Config() *config.Config {
	return c.config
}

// Result is the outcome of one compile run.
type Result struct {
	// Types are the named types in resolution order, including skipped templates.
	Types []*prototypes.Alias
	// Abandoned lists the named types that never resolved, with their missing dependency.
	Abandoned []builder.Abandoned
	// Phases holds the packets of every configured phase present in the schema.
	Phases []*builder.PhasePackets
	// Fingerprint is the hex SHA-256 of the schema document.
	Fingerprint string

	generator *codegen.Generator
}

// Compile runs the whole pipeline on one schema document. Any generation failure aborts the
// run; the returned result is only valid when err is nil.
func (c *Compiler) Compile(doc []byte) (*Result, error) {
	cfg := c.config

	protocol, err := schema.Load(doc, schema.WithTemplateKinds(cfg.Templates...), schema.WithOpaqueKinds(cfg.OpaqueKinds()...))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	b := builder.New(cfg, builder.WithLogger(c.log))
	resolved, err := b.Resolve(protocol.Types)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve types: %w", err)
	}

	g, err := codegen.New(cfg, codegen.WithLogger(c.log))
	if err != nil {
		return nil, err
	}
	for _, alias := range resolved.Resolved {
		if err := g.AddType(alias); err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(doc)
	result := &Result{
		Types:       resolved.Resolved,
		Abandoned:   resolved.Abandoned,
		Fingerprint: hex.EncodeToString(sum[:]),
		generator:   g,
	}

	for _, name := range cfg.Phases {
		phase, err := protocol.Phase(name)
		if errors.Is(err, schema.ErrNoPhase) {
			c.log.Warn().Str("phase", name).Msg("phase not in schema, no dispatcher entries")
			continue
		} else if err != nil {
			return nil, err
		}

		packets, err := b.BuildPhase(phase)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %w", name, err)
		}
		if err := g.AddPhase(packets); err != nil {
			return nil, fmt.Errorf("phase %s: %w", name, err)
		}
		result.Phases = append(result.Phases, packets)
	}

	c.log.Info().
		Int("types", len(result.Types)).
		Int("abandoned", len(result.Abandoned)).
		Int("phases", len(result.Phases)).
		Msg("schema compiled")
	return result, nil
}

// Render returns the declarations and implementation texts. headerName is the include name
// under which the implementation refers to the declarations.
func (r *Result) Render(headerName string) (header string, source string, err error) {
	return r.generator.Render(headerName, r.Fingerprint)
}

// NewDispatcher registers every packet with a mapped id at handler, keyed by phase and id the
// same way the generated dispatcher selects its wrappers.
func (r *Result) NewDispatcher(handler wire.Handler, opts ...wire.DispatcherOption) (*wire.Dispatcher, error) {
	d := wire.NewDispatcher(opts...)
	for _, pp := range r.Phases {
		for _, m := range pp.IDs {
			packet, ok := pp.Packet(schema.PacketTypeName + "_" + m.Name)
			if !ok {
				continue
			}
			id, err := strconv.ParseInt(m.Value, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("phase %s: invalid packet id %q: %w", pp.Phase, m.Value, err)
			}
			if err := d.Register(pp.Phase, int32(id), packet.Name, packet.Type, handler); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}
