// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/pk910/protodefc/builder"
	"github.com/pk910/protodefc/config"
)

const phaseProtocol = `{
	"types": {
		"varint": "native",
		"string": ["pstring", {"countType": "varint"}]
	},
	"handshaking": {
		"toServer": {"types": {
			"packet_set_protocol": ["container", [
				{"name": "protocolVersion", "type": "varint"},
				{"name": "serverHost", "type": "string"}
			]],
			"packet_legacy_server_list_ping": ["container", [{"name": "payload", "type": "u8"}]],
			"packet": ["container", [
				{"name": "name", "type": ["mapper", {"type": "varint", "mappings": {"0x00": "set_protocol", "0xfe": "legacy_server_list_ping"}}]},
				{"name": "params", "type": ["switch", {"compareTo": "name", "fields": {"set_protocol": "packet_set_protocol"}}]}
			]]
		}}
	},
	"status": {
		"toServer": {"types": {
			"packet_ping_start": ["container", []],
			"packet_ping": ["container", [{"name": "time", "type": "i64"}]],
			"packet": ["container", [
				{"name": "name", "type": ["mapper", {"type": "varint", "mappings": {"0x00": "ping_start", "0x01": "ping"}}]}
			]]
		}}
	}
}`

// tabs turns four-space indentation into tabs to keep expectations readable.
func tabs(lines ...string) string {
	return strings.ReplaceAll(strings.Join(lines, "\n"), "    ", "\t")
}

func generatePhases(t *testing.T, cfg *config.Config) (*Generator, error) {
	t.Helper()
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}
	p := loadProtocol(t, g.config, phaseProtocol)
	b := builder.New(g.config)
	res, err := b.Resolve(p.Types)
	if err != nil {
		t.Fatalf("failed to resolve types: %v", err)
	}
	for _, alias := range res.Resolved {
		if err := g.AddType(alias); err != nil {
			t.Fatalf("failed to generate %s: %v", alias.Name, err)
		}
	}
	for _, name := range []string{"handshaking", "status"} {
		phase, err := p.Phase(name)
		if err != nil {
			t.Fatalf("missing phase %s: %v", name, err)
		}
		packets, err := b.BuildPhase(phase)
		if err != nil {
			t.Fatalf("failed to build phase %s: %v", name, err)
		}
		if err := g.AddPhase(packets); err != nil {
			return g, err
		}
	}
	return g, nil
}

func TestDispatcher(t *testing.T) {
	g, err := generatePhases(t, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header := g.Header()
	for _, want := range []string{
		"int protocol_read_handshaking_packet_set_protocol(packet_arena_t* arena, uint8_t* data, int size, handshaking_packet_set_protocol_t* packet);",
		"err_t process_handshaking_packet_set_protocol(client_t* client, handshaking_packet_set_protocol_t* packet);",
		"status_packet_ping_t protocol_read_status_packet_ping(uint8_t* data);",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header is missing %q:\n%s", want, header)
		}
	}
	if strings.Contains(header, "protocol_write_status_packet_ping") {
		t.Errorf("packets should only get a read procedure:\n%s", header)
	}
	if strings.Contains(header, "legacy_server_list_ping") {
		t.Errorf("excluded packet was generated:\n%s", header)
	}

	source := g.Source()
	wrappers := []string{
		tabs(
			"static err_t dispatch_handshaking_packet_set_protocol(client_t* client, uint8_t* data, int size) {",
			"    err_t err = NO_ERROR;",
			"    handshaking_packet_set_protocol_t packet = { 0 };",
			"    packet_arena_t* arena = get_packet_arena();",
			"    int read_size = protocol_read_handshaking_packet_set_protocol(arena, data, size, &packet);",
			`    CHECK_ERROR(read_size == size, ERROR_PROTOCOL, "Failed to read packet handshaking_packet_set_protocol (%d != %d)", read_size, size);`,
			"    CHECK_AND_RETHROW(process_handshaking_packet_set_protocol(client, &packet));",
			"cleanup:",
			"    return_packet_arena(arena);",
			"    return err;",
			"}",
		),
		tabs(
			"static err_t dispatch_status_packet_ping(client_t* client, uint8_t* data, int size) {",
			"    err_t err = NO_ERROR;",
			"    status_packet_ping_t packet = { 0 };",
			`    CHECK_ERROR(size == 8, ERROR_PROTOCOL, "Invalid size for packet status_packet_ping (%d != 8)", size);`,
			"    packet = protocol_read_status_packet_ping(data);",
			"    CHECK_AND_RETHROW(process_status_packet_ping(client, &packet));",
			"cleanup:",
			"    return err;",
			"}",
		),
	}
	for _, want := range wrappers {
		if !strings.Contains(source, want) {
			t.Errorf("source is missing wrapper:\n%s\n--- source ---\n%s", want, source)
		}
	}

	dispatcher := tabs(
		"err_t dispatch_packet(client_t* client, uint8_t* data, int size) {",
		"    err_t err = NO_ERROR;",
		"    int32_t packet_id = 0;",
		"    int read_size = protocol_read_varint(data, size, &packet_id);",
		`    CHECK_ERROR(read_size >= 0, ERROR_PROTOCOL, "Failed to read packet id");`,
		"    data += read_size;",
		"    size -= read_size;",
		"    switch (client->state) {",
		"    case PROTOCOL_HANDSHAKING: {",
		"        switch (packet_id) {",
		"        case 0x00: {",
		"            CHECK_AND_RETHROW(dispatch_handshaking_packet_set_protocol(client, data, size));",
		"        } break;",
		"        default:",
		`            CHECK_FAIL_ERROR(ERROR_PROTOCOL, "Got unknown packet id: %d", packet_id);`,
		"        }",
		"    } break;",
		"    case PROTOCOL_STATUS: {",
		"        switch (packet_id) {",
		"        case 0x00: {",
		"            CHECK_AND_RETHROW(dispatch_status_packet_ping_start(client, data, size));",
		"        } break;",
		"        case 0x01: {",
		"            CHECK_AND_RETHROW(dispatch_status_packet_ping(client, data, size));",
		"        } break;",
		"        default:",
		`            CHECK_FAIL_ERROR(ERROR_PROTOCOL, "Got unknown packet id: %d", packet_id);`,
		"        }",
		"    } break;",
		"    default:",
		`        CHECK_FAIL("Got to invalid state: %d", client->state);`,
		"    }",
		"cleanup:",
		"    return err;",
		"}",
	)
	if !strings.HasSuffix(source, dispatcher) {
		t.Errorf("source should end with the dispatcher:\n%s\n--- source ---\n%s", dispatcher, source)
	}
}

func TestPacketFilter(t *testing.T) {
	tests := []struct {
		name     string
		filter   string
		present  []string
		absent   []string
		wantErr  error
		errOnNew bool
	}{
		{
			name:    "by name",
			filter:  "name != 'packet_ping'",
			present: []string{"dispatch_status_packet_ping_start(client, data, size)", "dispatch_handshaking_packet_set_protocol(client, data, size)"},
			absent:  []string{"dispatch_status_packet_ping(client, data, size)", "case 0x01:"},
		},
		{
			name:    "by id",
			filter:  "id >= 1",
			present: []string{"case 0x01:"},
			absent:  []string{"dispatch_handshaking_packet_set_protocol", "dispatch_status_packet_ping_start"},
		},
		{
			name:    "by phase and size class",
			filter:  "phase == 'status' && fixed",
			present: []string{"dispatch_status_packet_ping_start", "dispatch_status_packet_ping("},
			absent:  []string{"dispatch_handshaking_packet_set_protocol"},
		},
		{
			name:    "non-boolean result",
			filter:  "id + 1",
			wantErr: ErrFilterResult,
		},
		{
			name:     "invalid expression",
			filter:   "((",
			errOnNew: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.PacketFilter = tt.filter

			g, err := generatePhases(t, cfg)
			switch {
			case tt.errOnNew:
				if err == nil || g != nil {
					t.Fatalf("expected constructor error, got %v", err)
				}
				return
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}

			source := g.Source()
			for _, want := range tt.present {
				if !strings.Contains(source, want) {
					t.Errorf("source is missing %q", want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(source, unwanted) {
					t.Errorf("source should not contain %q", unwanted)
				}
			}
		})
	}
}

func TestRender(t *testing.T) {
	g, err := generatePhases(t, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	header, source, err := g.Render("protocol_gen.h", "f00d")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, want := range []string{
		"// Code generated by protodefc. DO NOT EDIT.\n",
		"// schema: f00d\n#pragma once\n",
		"#include <minecraft/protocol/packet_arena.h>\n",
		"#include <stdint.h>\n\n",
		"typedef struct {\n\tint32_t length;\n\tchar* elements;\n} string_t;",
		"\n\nerr_t dispatch_packet(client_t* client, uint8_t* data, int size);\n",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header is missing %q:\n%s", want, header)
		}
	}

	for _, want := range []string{
		"// schema: f00d\n#include \"protocol_gen.h\"\n",
		"#pragma GCC diagnostic ignored \"-Wswitch-bool\"\n",
		"#include <string.h>\n",
		"int protocol_read_string(",
		"err_t dispatch_packet(client_t* client, uint8_t* data, int size) {",
	} {
		if !strings.Contains(source, want) {
			t.Errorf("source is missing %q:\n%s", want, source)
		}
	}
	if strings.Contains(source, "#pragma once") {
		t.Error("source must not carry the header guard")
	}
}
