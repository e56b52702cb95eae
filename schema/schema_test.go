// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package schema

import (
	"errors"
	"testing"
)

const testProtocol = `{
  "types": {
    "varint": "native",
    "string": ["pstring", {"countType": "varint"}],
    "zeta": "u8",
    "alpha": ["container", [
      {"name": "kind", "type": "varint"},
      {"anon": true, "type": ["switch", {
        "compareTo": "kind",
        "fields": {"2": "string", "1": "void"},
        "default": "u8"
      }]}
    ]],
    "flags": ["bitfield", [
      {"name": "low", "size": 3, "signed": false},
      {"name": "high", "size": 5, "signed": true}
    ]],
    "particle": ["particleData", {"compareTo": "particleId"}],
    "meta": ["entityMetadataLoop", {"endVal": 255, "type": "u8"}],
    "odd": ["topBitSetTerminatedArray", {"type": "u8"}],
    "broken": ["array", {"type": "u8"}],
    "maybe": ["option", "f32"]
  },
  "handshaking": {
    "toClient": {"types": {}},
    "toServer": {
      "types": {
        "packet_set_protocol": ["container", [{"name": "protocolVersion", "type": "varint"}]],
        "packet": ["container", [
          {"name": "name", "type": ["mapper", {"type": "varint", "mappings": {"0x00": "set_protocol", "0xfe": "legacy_server_list_ping"}}]},
          {"name": "params", "type": ["switch", {"compareTo": "name", "fields": {"set_protocol": "packet_set_protocol"}}]}
        ]]
      }
    }
  },
  "status": {
    "toServer": {"types": {}}
  }
}`

func loadTestProtocol(t *testing.T) *Protocol {
	t.Helper()
	p, err := Load([]byte(testProtocol), WithTemplateKinds("particleData"), WithOpaqueKinds("entityMetadataLoop"))
	if err != nil {
		t.Fatalf("failed to load protocol: %v", err)
	}
	return p
}

func TestLoadOptions(t *testing.T) {
	opts := []LoadOption{WithTemplateKinds("particleData")}
	p, err := Load([]byte(testProtocol), opts...)
	if err != nil {
		t.Fatalf("failed to load protocol: %v", err)
	}
	for _, def := range p.Types {
		switch def.Name {
		case "particle":
			if _, ok := def.Expr.(*Templated); !ok {
				t.Errorf("particle should be a template instance, got %#v", def.Expr)
			}
		case "meta":
			if _, ok := def.Expr.(*Unknown); !ok {
				t.Errorf("meta without opaque kinds should be unknown, got %#v", def.Expr)
			}
		case "maybe":
			if _, ok := def.Expr.(*Option); !ok {
				t.Errorf("maybe should be an option expression, got %#v", def.Expr)
			}
		}
	}
}

func TestLoadKeepsOrder(t *testing.T) {
	p := loadTestProtocol(t)

	want := []string{"varint", "string", "zeta", "alpha", "flags", "particle", "meta", "odd", "broken", "maybe"}
	if len(p.Types) != len(want) {
		t.Fatalf("expected %d types, got %d", len(want), len(p.Types))
	}
	for i, name := range want {
		if p.Types[i].Name != name {
			t.Errorf("type %d: expected %s, got %s", i, name, p.Types[i].Name)
		}
	}

	alpha := p.Types[3].Expr.(*Container)
	sw, ok := alpha.Fields[1].Type.(*Switch)
	if !ok || !alpha.Fields[1].Anon {
		t.Fatalf("expected anonymous switch field, got %#v", alpha.Fields[1])
	}
	if sw.Cases[0].Value != "2" || sw.Cases[1].Value != "1" {
		t.Errorf("switch cases not in document order: %+v", sw.Cases)
	}
	if _, ok := sw.Default.(*Ref); !ok {
		t.Errorf("expected default reference, got %#v", sw.Default)
	}
}

func TestExprVariants(t *testing.T) {
	p := loadTestProtocol(t)

	tests := []struct {
		name  string
		check func(Expr) bool
	}{
		{"varint", func(e Expr) bool { _, ok := e.(*Native); return ok }},
		{"string", func(e Expr) bool { s, ok := e.(*PString); return ok && s.CountType.Kind() == "varint" }},
		{"zeta", func(e Expr) bool { r, ok := e.(*Ref); return ok && r.Name == "u8" }},
		{"flags", func(e Expr) bool {
			b, ok := e.(*Bitfield)
			return ok && len(b.Members) == 2 && b.Members[0].Size == 3 && b.Members[1].Signed
		}},
		{"particle", func(e Expr) bool { t, ok := e.(*Templated); return ok && t.CompareTo == "particleId" }},
		{"meta", func(e Expr) bool { _, ok := e.(*Opaque); return ok }},
		{"odd", func(e Expr) bool { u, ok := e.(*Unknown); return ok && u.Err == nil }},
		{"broken", func(e Expr) bool { u, ok := e.(*Unknown); return ok && errors.Is(u.Err, ErrInvalidPayload) }},
		{"maybe", func(e Expr) bool {
			o, ok := e.(*Option)
			if !ok {
				return false
			}
			r, ok := o.Type.(*Ref)
			return ok && r.Name == "f32"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, def := range p.Types {
				if def.Name == tt.name {
					if !tt.check(def.Expr) {
						t.Errorf("unexpected expression %#v", def.Expr)
					}
					return
				}
			}
			t.Fatalf("type %s not loaded", tt.name)
		})
	}
}

func TestPhases(t *testing.T) {
	p := loadTestProtocol(t)

	if len(p.Phases) != 2 || p.Phases[0].Name != "handshaking" || p.Phases[1].Name != "status" {
		t.Fatalf("unexpected phases %+v", p.Phases)
	}

	hs, err := p.Phase("handshaking")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids, err := hs.PacketIDs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0].Value != "0x00" || ids[0].Name != "set_protocol" || ids[1].Name != "legacy_server_list_ping" {
		t.Errorf("unexpected ids %+v", ids)
	}

	status, _ := p.Phase("status")
	if _, err := status.PacketIDs(); !errors.Is(err, ErrNoPacketIDs) {
		t.Errorf("expected ErrNoPacketIDs, got %v", err)
	}

	if _, err := p.Phase("play"); !errors.Is(err, ErrNoPhase) {
		t.Errorf("expected ErrNoPhase, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"not an object", `[1, 2]`, ErrInvalidExpr},
		{"no types", `{"handshaking": {}}`, ErrNoTypes},
		{"bad expression", `{"types": {"a": 5}}`, ErrInvalidExpr},
		{"bad pair", `{"types": {"a": ["container"]}}`, ErrInvalidExpr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load([]byte(tt.doc)); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}

	if _, err := Load([]byte(`{"types": {}`)); err == nil {
		t.Error("expected error for truncated document")
	}
	if _, err := Load([]byte(`{"types": {}} {}`)); err == nil {
		t.Error("expected error for trailing data")
	}
}
