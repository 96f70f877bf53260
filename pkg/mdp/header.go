package mdp

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidMagic   = errors.New("invalid protocol magic")
	ErrInvalidVersion = errors.New("unsupported protocol version")
	ErrInvalidHeader  = errors.New("invalid header")
)

// Header represents the fixed 16-byte MDP message header
type Header struct {
	Magic   uint16 // Magic number (0xA15A)
	Version uint8  // Protocol version
	MsgType uint8  // Message type
	Seq     uint32 // Sender sequence number, per directed link edge
	Ack     uint32 // Cumulative acknowledgment of the peer's sequence space
	Flags   uint8  // ACK_REQUESTED, IS_ACK, IS_NACK
	Src     uint8  // Sender endpoint
	Dst     uint8  // Recipient endpoint
	Rsv     uint8  // Reserved, zero
}

// NewHeader returns a header with magic and version filled in
func NewHeader(msgType, src, dst uint8) Header {
	return Header{
		Magic:   ProtocolMagic,
		Version: ProtocolVersion,
		MsgType: msgType,
		Src:     src,
		Dst:     dst,
	}
}

// Encode encodes the header to bytes. All multi-byte fields are
// composed field-by-field, little-endian.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)

	binary.LittleEndian.PutUint16(buf[0:2], h.Magic)
	buf[2] = h.Version
	buf[3] = h.MsgType
	binary.LittleEndian.PutUint32(buf[4:8], h.Seq)
	binary.LittleEndian.PutUint32(buf[8:12], h.Ack)
	buf[12] = h.Flags
	buf[13] = h.Src
	buf[14] = h.Dst
	buf[15] = h.Rsv

	return buf
}

// Decode decodes the header from bytes
func (h *Header) Decode(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeader
	}

	h.Magic = binary.LittleEndian.Uint16(buf[0:2])
	h.Version = buf[2]
	h.MsgType = buf[3]
	h.Seq = binary.LittleEndian.Uint32(buf[4:8])
	h.Ack = binary.LittleEndian.Uint32(buf[8:12])
	h.Flags = buf[12]
	h.Src = buf[13]
	h.Dst = buf[14]
	h.Rsv = buf[15]

	return nil
}

// Validate validates the header
func (h *Header) Validate() error {
	if h.Magic != ProtocolMagic {
		return ErrInvalidMagic
	}

	if h.Version != ProtocolVersion {
		return ErrInvalidVersion
	}

	return nil
}

// HasFlag checks if a flag is set
func (h *Header) HasFlag(flag uint8) bool {
	return (h.Flags & flag) != 0
}

// SetFlag sets a flag
func (h *Header) SetFlag(flag uint8) {
	h.Flags |= flag
}

// ClearFlag clears a flag
func (h *Header) ClearFlag(flag uint8) {
	h.Flags &^= flag
}
