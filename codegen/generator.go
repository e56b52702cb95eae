// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"
	"strings"

	"github.com/casbin/govaluate"
	"github.com/rs/zerolog"

	"github.com/pk910/protodefc/codegen/tmpl"
	"github.com/pk910/protodefc/config"
	"github.com/pk910/protodefc/prototypes"
)

// Generator accumulates the declaration and implementation fragments of one generation run.
//
// Fragments are kept in the order types and phases are added, so the same input always
// renders the same text. Local names that must not collide inside a procedure come from
// run-wide counters.
type Generator struct {
	config *config.Config
	log    zerolog.Logger
	filter *govaluate.EvaluableExpression

	loopCounter   int
	packedCounter int

	header []string
	source []string
	phases []*phaseDispatch
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger for skipped packets and filter decisions.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Generator) {
		g.log = log
	}
}

// New creates a generator. A nil cfg uses the defaults. The packet filter expression of cfg
// is compiled here so that a broken expression fails before any code is generated.
func New(cfg *config.Config, opts ...Option) (*Generator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Generator{
		config: cfg,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if cfg.PacketFilter != "" {
		expr, err := govaluate.NewEvaluableExpression(cfg.PacketFilter)
		if err != nil {
			return nil, fmt.Errorf("error parsing packet filter expression: %w", err)
		}
		g.filter = expr
	}
	return g, nil
}

func (g *Generator) loopVar() string {
	name := fmt.Sprintf("i%d", g.loopCounter)
	g.loopCounter++
	return name
}

func (g *Generator) packedVar() string {
	name := fmt.Sprintf("packed%d", g.packedCounter)
	g.packedCounter++
	return name
}

// AddType emits the typedef and read/write procedures of a registered named type. Abstract
// union templates emit nothing.
func (g *Generator) AddType(alias *prototypes.Alias) error {
	if isTemplate(alias.Base) {
		g.log.Debug().Str("type", alias.Name).Msg("skipping union template")
		return nil
	}

	p, err := g.generateProcedures(alias.Name, alias.Base, true)
	if err != nil {
		return fmt.Errorf("type %s: %w", alias.Name, err)
	}

	g.addHeader(p.typedef + "\n" + p.readProto + "\n" + p.writeProto)
	g.addSource(p.readCode)
	g.addSource(p.writeCode)
	return nil
}

func (g *Generator) addHeader(fragment string) {
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		g.header = append(g.header, fragment)
	}
}

func (g *Generator) addSource(fragment string) {
	if fragment = strings.TrimSpace(fragment); fragment != "" {
		g.source = append(g.source, fragment)
	}
}

// Header returns the composed declarations listing.
func (g *Generator) Header() string {
	return strings.Join(g.header, "\n\n")
}

// Source returns the composed implementation listing, ending with the packet dispatcher.
func (g *Generator) Source() string {
	fragments := make([]string, 0, len(g.source)+1)
	fragments = append(fragments, g.source...)
	fragments = append(fragments, g.generateDispatcher())
	return strings.Join(fragments, "\n\n")
}

// Render assembles both output files. headerName is the include name of the declarations
// file as seen from the implementation file; fingerprint identifies the schema revision.
func (g *Generator) Render(headerName, fingerprint string) (header string, source string, err error) {
	banner := tmpl.Banner{
		Generator:   g.config.Output.Generator,
		Version:     Version,
		Fingerprint: fingerprint,
	}

	headerCode := tmpl.Header{Banner: banner, Code: g.Header()}
	headerCode.Includes = g.config.Output.HeaderIncludes
	headerBuilder := strings.Builder{}
	if err := GetTemplate("tmpl/banner.tmpl", "tmpl/header.tmpl").ExecuteTemplate(&headerBuilder, "header", headerCode); err != nil {
		return "", "", err
	}

	sourceCode := tmpl.Source{Banner: banner, HeaderName: headerName, Code: g.Source()}
	sourceCode.Includes = g.config.Output.SourceIncludes
	sourceBuilder := strings.Builder{}
	if err := GetTemplate("tmpl/banner.tmpl", "tmpl/source.tmpl").ExecuteTemplate(&sourceBuilder, "source", sourceCode); err != nil {
		return "", "", err
	}

	return headerBuilder.String(), sourceBuilder.String(), nil
}
