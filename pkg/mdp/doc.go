// Package mdp implements the MycoBrain Datagram Protocol (MDP) v1.
//
// The mdp package defines the wire header, message types, endpoint
// addresses and the command/event body formats shared by every node in
// the MycoBrain network.
//
// # Protocol Overview
//
// MDP is a small binary protocol for a fixed three-node network:
//   - Side-A (origin): senses, acts, and produces telemetry
//   - Side-B (router): bridges the wired link and the radio link
//   - Gateway: surfaces traffic to a host computer
//
// Every message starts with a fixed 16-byte little-endian header:
//   - Magic (2 bytes): protocol identifier (0xA15A)
//   - Version (1 byte): protocol version (1)
//   - MsgType (1 byte): message type
//   - Seq (4 bytes): sender sequence number, per directed link edge
//   - Ack (4 bytes): cumulative acknowledgment of the peer's sequence space
//   - Flags (1 byte): ACK_REQUESTED, IS_ACK, IS_NACK
//   - Src (1 byte): sender endpoint
//   - Dst (1 byte): recipient endpoint
//   - Rsv (1 byte): reserved, zero
//
// # Message Types
//
// Core (0x01-0x06):
//   - Telemetry: signed envelope from the origin
//   - Command: host-originated control message
//   - Ack: cumulative acknowledgment, may be piggybacked or standalone
//   - Event: command result reporting
//   - Hello: peer liveness announcement
//
// Domain extensions (0x07+) ride the same framing and reliability engine;
// the core treats their bodies as opaque.
//
// # Sequence Spaces
//
// Sequence numbers are scoped to a directed link edge. A node holds an
// independent outbound counter and inbound high-water mark per peer;
// numbers never cross edges and are never reused within a boot epoch.
//
// # Bodies
//
// Command bodies are length-tagged: cmd_id (u16) ++ cmd_len (u16) ++ data.
// Event bodies carry a command result: evt_type (u16) ++ evt_len (u16) ++
// cmd_id (u16) ++ status (i16) ++ data. All multi-byte fields are
// little-endian; parsers read the length and then exactly that many bytes.
package mdp
