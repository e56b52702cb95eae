// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

// Package config holds the generator settings: which phases and packets get a dispatcher,
// which schema types are skipped or handled by the runtime, the member name tables for
// switches whose values do not name themselves, and the output banner settings.
//
// Settings start from the embedded defaults; a YAML or TOML file overlays them.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	ErrUnknownFormat = errors.New("unknown config file format")
	ErrInvalid       = errors.New("invalid config")
)

// Opaque describes a compound kind whose codec lives in the runtime.
type Opaque struct {
	Name  string `yaml:"name" toml:"name"`
	CType string `yaml:"ctype" toml:"ctype"`
}

// Output configures the banners of the generated texts.
type Output struct {
	Generator      string   `yaml:"generator" toml:"generator"`
	HeaderIncludes []string `yaml:"headerIncludes" toml:"headerIncludes"`
	SourceIncludes []string `yaml:"sourceIncludes" toml:"sourceIncludes"`
}

// Config is the complete generator configuration.
type Config struct {
	Phases                 []string                     `yaml:"phases" toml:"phases"`
	ExcludePackets         []string                     `yaml:"excludePackets" toml:"excludePackets"`
	PacketFilter           string                       `yaml:"packetFilter" toml:"packetFilter"`
	SkipTypes              []string                     `yaml:"skipTypes" toml:"skipTypes"`
	MaxRetries             int                          `yaml:"maxRetries" toml:"maxRetries"`
	Templates              []string                     `yaml:"templates" toml:"templates"`
	Opaque                 map[string]Opaque            `yaml:"opaque" toml:"opaque"`
	FieldNames             map[string]map[string]string `yaml:"fieldNames" toml:"fieldNames"`
	DiscriminantFieldNames map[string]map[string]string `yaml:"discriminantFieldNames" toml:"discriminantFieldNames"`
	Output                 Output                       `yaml:"output" toml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load reads the file at path over the defaults. The format follows the file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = cfg.overlayYAML(data)
	case ".toml":
		err = cfg.overlayTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) overlayYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) overlayTOML(data []byte) error {
	meta, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

// Validate checks the settings that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: maxRetries must not be negative", ErrInvalid)
	}
	for kind, o := range c.Opaque {
		if o.Name == "" || o.CType == "" {
			return fmt.Errorf("%w: opaque kind %s needs name and ctype", ErrInvalid, kind)
		}
	}
	for _, phase := range c.Phases {
		if strings.TrimSpace(phase) == "" {
			return fmt.Errorf("%w: empty phase name", ErrInvalid)
		}
	}
	return nil
}

// Skipped reports whether the named type is excluded from generation.
func (c *Config) Skipped(name string) bool {
	return slices.Contains(c.SkipTypes, name)
}

// Excluded reports whether the packet type never gets a wrapper.
func (c *Config) Excluded(packet string) bool {
	return slices.Contains(c.ExcludePackets, packet)
}

// OpaqueKinds returns the configured opaque kind names in sorted order.
func (c *Config) OpaqueKinds() []string {
	kinds := make([]string, 0, len(c.Opaque))
	for kind := range c.Opaque {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
