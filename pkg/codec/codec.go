// Package codec implements the MDP wire framing: payloads are
// CRC-16/CCITT-FALSE protected, COBS byte-stuffed, and terminated by a
// single 0x00 delimiter. COBS guarantees the delimiter is the only zero
// byte in the encoded stream.
package codec

import (
	"errors"

	"github.com/sigurn/crc16"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrBadCOBS         = errors.New("malformed COBS encoding")
	ErrTooShort        = errors.New("decoded frame too short")
	ErrBadCRC          = errors.New("frame CRC mismatch")
)

// crcTable is the CRC-16/CCITT-FALSE table: poly 0x1021, init 0xFFFF,
// no reflection, no xor-out.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Checksum computes the CRC-16/CCITT-FALSE of data
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Encode frames a payload for the wire: append the CRC little-endian,
// COBS-encode, and terminate with the 0x00 delimiter.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > mdp.MaxPayload {
		return nil, ErrPayloadTooLarge
	}

	raw := make([]byte, len(payload)+2)
	copy(raw, payload)

	crc := Checksum(payload)
	raw[len(payload)] = byte(crc & 0xFF)
	raw[len(payload)+1] = byte(crc >> 8)

	frame := cobsEncode(raw)
	frame = append(frame, 0x00)

	return frame, nil
}

// Decode reverses Encode for a frame with the delimiter already
// stripped. Returns the payload without the trailing CRC.
func Decode(frame []byte) ([]byte, error) {
	raw, err := cobsDecode(frame)
	if err != nil {
		return nil, err
	}

	if len(raw) < 2 {
		return nil, ErrTooShort
	}

	payload := raw[:len(raw)-2]
	recvCRC := uint16(raw[len(raw)-2]) | uint16(raw[len(raw)-1])<<8

	if recvCRC != Checksum(payload) {
		return nil, ErrBadCRC
	}

	return payload, nil
}
