// Copyright (c) 2025 pk910
// SPDX-License-Identifier: Apache-2.0
// This file is part of the protodefc library.

package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pk910/protodefc/builder"
	"github.com/pk910/protodefc/schema"
)

// phaseDispatch is the id table of one connection state, restricted to packets that got a
// wrapper.
type phaseDispatch struct {
	phase   string
	entries []schema.Mapping // Name holds the wrapper name
}

// AddPhase emits the packets of one phase: typedef, read procedure, handler prototype and
// the decode-and-handle wrapper. The phase's id table is kept for the top-level dispatcher.
func (g *Generator) AddPhase(pp *builder.PhasePackets) error {
	dispatch := &phaseDispatch{phase: pp.Phase}
	wrappers := make(map[string]string, len(pp.Packets))

	for i := range pp.Packets {
		packet := &pp.Packets[i]

		keep, err := g.filterPacket(pp, packet)
		if err != nil {
			return fmt.Errorf("packet %s: %w", packet.Name, err)
		}
		if !keep {
			g.log.Debug().Str("packet", packet.Name).Msg("packet filtered")
			continue
		}

		p, err := g.generateProcedures(packet.Name, packet.Type, false)
		if err != nil {
			return fmt.Errorf("packet %s: %w", packet.Name, err)
		}

		g.addHeader(p.typedef + "\n" + p.readProto + "\n" + handlerProto(packet.Name))
		g.addSource(p.readCode)
		g.addSource(g.generateWrapper(packet))
		wrappers[packet.Packet] = wrapperName(packet.Name)
	}

	for _, m := range pp.IDs {
		wrapper, ok := wrappers[packetTableName(m.Name)]
		if !ok {
			g.log.Debug().Str("phase", pp.Phase).Str("id", m.Value).Str("packet", m.Name).Msg("no wrapper for packet id")
			continue
		}
		dispatch.entries = append(dispatch.entries, schema.Mapping{Value: m.Value, Name: wrapper})
	}

	g.phases = append(g.phases, dispatch)
	return nil
}

func packetTableName(name string) string {
	return schema.PacketTypeName + "_" + name
}

func wrapperName(name string) string {
	return "dispatch_" + name
}

func handlerProto(name string) string {
	return fmt.Sprintf("err_t process_%s(client_t* client, %s_t* packet);", name, name)
}

// filterPacket evaluates the configured packet filter. The expression sees the phase name,
// the packet table name, its numeric id (-1 when unmapped) and whether the packet is fixed-size.
func (g *Generator) filterPacket(pp *builder.PhasePackets, packet *builder.Packet) (bool, error) {
	if g.filter == nil {
		return true, nil
	}

	id := float64(-1)
	for _, m := range pp.IDs {
		if packetTableName(m.Name) != packet.Packet {
			continue
		}
		if v, err := strconv.ParseInt(m.Value, 0, 64); err == nil {
			id = float64(v)
		}
		break
	}

	result, err := g.filter.Evaluate(map[string]interface{}{
		"phase": pp.Phase,
		"name":  packet.Packet,
		"id":    id,
		"fixed": !packet.Type.Size().IsVariable(),
	})
	if err != nil {
		return false, fmt.Errorf("error evaluating packet filter: %w", err)
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrFilterResult, result)
	}
	return keep, nil
}

// generateWrapper renders the decode-and-handle function of a packet. Variable-size packets
// decode into a pooled arena that is returned on every exit path and must consume the whole
// payload; fixed-size packets are checked against their static size instead.
func (g *Generator) generateWrapper(packet *builder.Packet) string {
	name := packet.Name
	code := strings.Builder{}

	appendCode(&code, 0, "static err_t %s(client_t* client, uint8_t* data, int size) {\n", wrapperName(name))
	appendCode(&code, 1, "err_t err = NO_ERROR;\n")
	appendCode(&code, 1, "%s_t packet = { 0 };\n", name)

	if size := packet.Type.Size(); size.IsVariable() {
		appendCode(&code, 1, "packet_arena_t* arena = get_packet_arena();\n")
		appendCode(&code, 1, "int read_size = protocol_read_%s(arena, data, size, &packet);\n", name)
		appendCode(&code, 1, "CHECK_ERROR(read_size == size, ERROR_PROTOCOL, \"Failed to read packet %s (%%d != %%d)\", read_size, size);\n", name)
		appendCode(&code, 1, "CHECK_AND_RETHROW(process_%s(client, &packet));\n", name)
		appendCode(&code, 0, "cleanup:\n")
		appendCode(&code, 1, "return_packet_arena(arena);\n")
	} else {
		appendCode(&code, 1, "CHECK_ERROR(size == %d, ERROR_PROTOCOL, \"Invalid size for packet %s (%%d != %d)\", size);\n", size, name, size)
		appendCode(&code, 1, "packet = protocol_read_%s(data);\n", name)
		appendCode(&code, 1, "CHECK_AND_RETHROW(process_%s(client, &packet));\n", name)
		appendCode(&code, 0, "cleanup:\n")
	}
	appendCode(&code, 1, "return err;\n")
	appendCode(&code, 0, "}")
	return code.String()
}

// generateDispatcher renders dispatch_packet: read the packet id, then select the wrapper by
// connection state and id.
func (g *Generator) generateDispatcher() string {
	code := strings.Builder{}

	appendCode(&code, 0, "err_t dispatch_packet(client_t* client, uint8_t* data, int size) {\n")
	appendCode(&code, 1, "err_t err = NO_ERROR;\n")
	appendCode(&code, 1, "int32_t packet_id = 0;\n")
	appendCode(&code, 1, "int read_size = protocol_read_varint(data, size, &packet_id);\n")
	appendCode(&code, 1, "CHECK_ERROR(read_size >= 0, ERROR_PROTOCOL, \"Failed to read packet id\");\n")
	appendCode(&code, 1, "data += read_size;\n")
	appendCode(&code, 1, "size -= read_size;\n")
	appendCode(&code, 1, "switch (client->state) {\n")
	for _, phase := range g.phases {
		appendCode(&code, 1, "case PROTOCOL_%s: {\n", strings.ToUpper(phase.phase))
		appendCode(&code, 2, "switch (packet_id) {\n")
		for _, entry := range phase.entries {
			appendCode(&code, 2, "case %s: {\n", entry.Value)
			appendCode(&code, 3, "CHECK_AND_RETHROW(%s(client, data, size));\n", entry.Name)
			appendCode(&code, 2, "} break;\n")
		}
		appendCode(&code, 2, "default:\n")
		appendCode(&code, 3, "CHECK_FAIL_ERROR(ERROR_PROTOCOL, \"Got unknown packet id: %d\", packet_id);\n")
		appendCode(&code, 2, "}\n")
		appendCode(&code, 1, "} break;\n")
	}
	appendCode(&code, 1, "default:\n")
	appendCode(&code, 2, "CHECK_FAIL(\"Got to invalid state: %d\", client->state);\n")
	appendCode(&code, 1, "}\n")
	appendCode(&code, 0, "cleanup:\n")
	appendCode(&code, 1, "return err;\n")
	appendCode(&code, 0, "}")
	return code.String()
}
