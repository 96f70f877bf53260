// Package effector is the command execution boundary. The core routes
// COMMAND payloads here by cmd_id and reports the returned status in a
// command-result EVENT; the semantics of each command live behind the
// interface.
package effector

import (
	"encoding/binary"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// Effector executes one command and returns a status from the
// mdp.Status* set plus optional result data
type Effector interface {
	Dispatch(cmdID uint16, payload []byte) (status int16, data []byte)
}

// Reference implements the stock 0x0002-0x0009 commands against
// in-process state; CMD_SET_I2C (0x0001) is not implemented and is
// answered unknown. Commands above 0x0009 are owned by whoever swaps
// this out; the reference answers them unknown.
type Reference struct {
	// TelemetryMS is updated by CMD_SET_TELEM_MS (clamped 100..60000)
	TelemetryMS uint32

	// MOS output states, idx 1..3
	MOS [3]bool

	// OnReboot is invoked by CMD_REBOOT; nil means the command
	// reports OK without side effect
	OnReboot func()

	// OnPersist is invoked by CMD_SAVE_NVS / CMD_LOAD_NVS with
	// save=true/false
	OnPersist func(save bool) error
}

// NewReference creates a reference effector with default state
func NewReference() *Reference {
	return &Reference{TelemetryMS: 1000}
}

// Dispatch executes one command
func (r *Reference) Dispatch(cmdID uint16, payload []byte) (int16, []byte) {
	switch cmdID {
	case mdp.CmdScanI2C:
		return mdp.StatusOK, nil

	case mdp.CmdSetTelemMS:
		if len(payload) != 4 {
			return mdp.StatusBadLength, nil
		}
		ms := binary.LittleEndian.Uint32(payload)
		if ms < 100 {
			ms = 100
		}
		if ms > 60000 {
			ms = 60000
		}
		r.TelemetryMS = ms
		return mdp.StatusOK, nil

	case mdp.CmdSetMOS:
		if len(payload) != 2 {
			return mdp.StatusBadLength, nil
		}
		idx, val := payload[0], payload[1]
		if idx < 1 || idx > 3 {
			return mdp.StatusBadArg, nil
		}
		if val > 1 {
			return mdp.StatusBadArg, nil
		}
		r.MOS[idx-1] = val == 1
		return mdp.StatusOK, nil

	case mdp.CmdSaveNVS:
		if r.OnPersist != nil {
			if err := r.OnPersist(true); err != nil {
				return mdp.StatusValidationFail, nil
			}
		}
		return mdp.StatusOK, nil

	case mdp.CmdLoadNVS:
		if r.OnPersist != nil {
			if err := r.OnPersist(false); err != nil {
				return mdp.StatusValidationFail, nil
			}
		}
		return mdp.StatusOK, nil

	case mdp.CmdReboot:
		if r.OnReboot != nil {
			r.OnReboot()
		}
		return mdp.StatusOK, nil

	default:
		return mdp.StatusUnknownCmd, nil
	}
}
