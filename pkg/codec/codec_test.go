package codec

import (
	"bytes"
	"testing"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

func testPayloads() map[string][]byte {
	long := make([]byte, 300)
	for i := range long {
		long[i] = byte(i%255) + 1 // zero-free run longer than 254
	}

	zeros := make([]byte, 64)

	mixed := make([]byte, mdp.MaxPayload)
	for i := range mixed {
		mixed[i] = byte(i % 7)
	}

	return map[string][]byte{
		"single byte":        {0x42},
		"single zero":        {0x00},
		"short":              {0x01, 0x02, 0x03},
		"leading zero":       {0x00, 0x01, 0x02},
		"trailing zero":      {0x01, 0x02, 0x00},
		"all zeros":          zeros,
		"long zero-free run": long,
		"max payload":        mixed,
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	for name, payload := range testPayloads() {
		t.Run(name, func(t *testing.T) {
			frame, err := Encode(payload)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			if frame[len(frame)-1] != 0x00 {
				t.Error("frame does not end with delimiter")
			}

			decoded, err := Decode(frame[:len(frame)-1])
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Errorf("Decode() = % x, want % x", decoded, payload)
			}
		})
	}
}

func TestSingleDelimiter(t *testing.T) {
	for name, payload := range testPayloads() {
		t.Run(name, func(t *testing.T) {
			frame, err := Encode(payload)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			zeros := 0
			for _, b := range frame {
				if b == 0x00 {
					zeros++
				}
			}
			if zeros != 1 {
				t.Errorf("encoded frame contains %d zero bytes, want 1", zeros)
			}
			if frame[len(frame)-1] != 0x00 {
				t.Error("delimiter is not the final byte")
			}
		})
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	payload := []byte{0x10, 0x00, 0x20, 0x30, 0x00, 0x40}

	frame, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	body := frame[:len(frame)-1]

	// Flipping any single bit of the encoded payload portion must fail
	// decode with ErrBadCRC, ErrBadCOBS or ErrTooShort.
	for i := 0; i < len(body); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := make([]byte, len(body))
			copy(corrupted, body)
			corrupted[i] ^= 1 << bit

			_, err := Decode(corrupted)
			if err != ErrBadCRC && err != ErrBadCOBS && err != ErrTooShort {
				t.Fatalf("Decode() with byte %d bit %d flipped: error = %v, want CRC/COBS failure", i, bit, err)
			}
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i + 1)
	}

	frame, err := Encode(payload)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	body := frame[:len(frame)-1]

	// Code byte pointing past the end must be rejected
	if _, err := Decode(body[:len(body)-5]); err == nil {
		t.Error("Decode() of truncated frame: error = nil, want error")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		wantErr error
	}{
		{
			name:    "embedded zero",
			frame:   []byte{0x03, 0x01, 0x00, 0x02},
			wantErr: ErrBadCOBS,
		},
		{
			name:    "code past end",
			frame:   []byte{0x08, 0x01, 0x02},
			wantErr: ErrBadCOBS,
		},
		{
			name:    "decodes shorter than crc",
			frame:   []byte{0x02, 0x01},
			wantErr: ErrTooShort,
		},
		{
			name:    "bad crc",
			frame:   []byte{0x04, 0x01, 0x02, 0x03},
			wantErr: ErrBadCRC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.frame); err != tt.wantErr {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeTooLarge(t *testing.T) {
	if _, err := Encode(make([]byte, mdp.MaxPayload+1)); err != ErrPayloadTooLarge {
		t.Errorf("Encode() error = %v, want %v", err, ErrPayloadTooLarge)
	}
}

func TestChecksumKnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE check value for "123456789"
	if got := Checksum([]byte("123456789")); got != 0x29B1 {
		t.Errorf("Checksum() = %#04x, want 0x29b1", got)
	}
}
