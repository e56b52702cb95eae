// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := parseLevel(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnvOverrides(&cfg)

	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: zerolog.InfoLevel, NoColor: true})

	log.Debug().Msg("hidden")
	log.Warn().Str("type", "foo").Msg("abandoned")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered: %q", out)
	}
	if !strings.Contains(out, "abandoned") || !strings.Contains(out, "type=foo") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSetup(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvLogNoColor, "true")

	var buf bytes.Buffer
	log := Setup(&buf, ProfileRuntime, true)
	log.Debug().Msg("deferring type")
	if !strings.Contains(buf.String(), "deferring type") {
		t.Errorf("verbose logger should emit debug messages: %q", buf.String())
	}

	t.Setenv(EnvLogLevel, "warn")
	buf.Reset()
	log = Setup(&buf, ProfileTest, true)
	log.Info().Msg("schema compiled")
	if buf.Len() != 0 {
		t.Errorf("environment level should win over verbose: %q", buf.String())
	}
}
