package mdp

import (
	"bytes"
	"testing"
)

func TestCommandEncodeParse(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{
			name: "set mos",
			cmd:  Command{ID: CmdSetMOS, Data: []byte{1, 1}},
		},
		{
			name: "no payload",
			cmd:  Command{ID: CmdScanI2C, Data: []byte{}},
		},
		{
			name: "effector-owned id",
			cmd:  Command{ID: 0x00A0, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.cmd.Encode()

			if len(encoded) != 4+len(tt.cmd.Data) {
				t.Errorf("Encode() length = %d, want %d", len(encoded), 4+len(tt.cmd.Data))
			}

			parsed, err := ParseCommand(encoded)
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if parsed.ID != tt.cmd.ID {
				t.Errorf("ID = %#x, want %#x", parsed.ID, tt.cmd.ID)
			}
			if !bytes.Equal(parsed.Data, tt.cmd.Data) {
				t.Errorf("Data = % x, want % x", parsed.Data, tt.cmd.Data)
			}
		})
	}
}

func TestParseCommandInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{
			name:    "too short",
			body:    []byte{0x01, 0x00, 0x02},
			wantErr: ErrBodyTooShort,
		},
		{
			name:    "length field exceeds body",
			body:    []byte{0x01, 0x00, 0x05, 0x00, 0xAA},
			wantErr: ErrBadBodyLen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCommand(tt.body); err != tt.wantErr {
				t.Errorf("ParseCommand() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommandResultEncodeParse(t *testing.T) {
	tests := []struct {
		name string
		evt  CommandResult
	}{
		{
			name: "ok result",
			evt:  CommandResult{CmdID: CmdSetMOS, Status: StatusOK, Data: []byte{}},
		},
		{
			name: "bad arg",
			evt:  CommandResult{CmdID: CmdSetMOS, Status: StatusBadArg, Data: []byte{}},
		},
		{
			name: "result with data",
			evt:  CommandResult{CmdID: CmdScanI2C, Status: StatusOK, Data: []byte{0x76, 0x77}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.evt.Encode()

			parsed, err := ParseCommandResult(encoded)
			if err != nil {
				t.Fatalf("ParseCommandResult() error = %v", err)
			}
			if parsed.CmdID != tt.evt.CmdID {
				t.Errorf("CmdID = %#x, want %#x", parsed.CmdID, tt.evt.CmdID)
			}
			if parsed.Status != tt.evt.Status {
				t.Errorf("Status = %d, want %d", parsed.Status, tt.evt.Status)
			}
			if !bytes.Equal(parsed.Data, tt.evt.Data) {
				t.Errorf("Data = % x, want % x", parsed.Data, tt.evt.Data)
			}
		})
	}
}

func TestCommandResultNegativeStatus(t *testing.T) {
	// i16 statuses must survive the u16 wire representation
	evt := CommandResult{CmdID: 0x0004, Status: -3}

	parsed, err := ParseCommandResult(evt.Encode())
	if err != nil {
		t.Fatalf("ParseCommandResult() error = %v", err)
	}
	if parsed.Status != -3 {
		t.Errorf("Status = %d, want -3", parsed.Status)
	}
}

func TestParseCommandResultInvalid(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: []byte{}},
		{name: "truncated header", body: []byte{0x01, 0x00, 0x04, 0x00}},
		{name: "evt_len exceeds body", body: []byte{0x01, 0x00, 0x10, 0x00, 0x04, 0x00, 0x00, 0x00}},
		{name: "wrong evt_type", body: []byte{0x02, 0x00, 0x04, 0x00, 0x04, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCommandResult(tt.body); err == nil {
				t.Error("ParseCommandResult() error = nil, want error")
			}
		})
	}
}
