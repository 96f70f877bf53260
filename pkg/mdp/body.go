package mdp

import (
	"encoding/binary"
	"errors"
)

var (
	ErrBodyTooShort = errors.New("message body too short")
	ErrBadBodyLen   = errors.New("message body length field mismatch")
)

// Command is the body of a COMMAND message:
// cmd_id (u16) ++ cmd_len (u16) ++ cmd_data[cmd_len]
type Command struct {
	ID   uint16
	Data []byte
}

// Encode encodes the command body
func (c *Command) Encode() []byte {
	buf := make([]byte, 4+len(c.Data))

	binary.LittleEndian.PutUint16(buf[0:2], c.ID)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(c.Data)))
	copy(buf[4:], c.Data)

	return buf
}

// ParseCommand parses a COMMAND body. The length tag is read first and
// exactly that many bytes must follow.
func ParseCommand(body []byte) (*Command, error) {
	if len(body) < 4 {
		return nil, ErrBodyTooShort
	}

	id := binary.LittleEndian.Uint16(body[0:2])
	dataLen := int(binary.LittleEndian.Uint16(body[2:4]))

	if len(body) < 4+dataLen {
		return nil, ErrBadBodyLen
	}

	data := make([]byte, dataLen)
	copy(data, body[4:4+dataLen])

	return &Command{ID: id, Data: data}, nil
}

// CommandResult is the body of an EVENT message reporting a command
// outcome: evt_type (u16) ++ evt_len (u16) ++ cmd_id (u16) ++
// status (i16) ++ data[evt_len-4]
type CommandResult struct {
	CmdID  uint16
	Status int16
	Data   []byte
}

// Encode encodes the command result event body
func (e *CommandResult) Encode() []byte {
	evtLen := 4 + len(e.Data) // cmd_id + status + data
	buf := make([]byte, 4+evtLen)

	binary.LittleEndian.PutUint16(buf[0:2], EvtCmdResult)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(evtLen))
	binary.LittleEndian.PutUint16(buf[4:6], e.CmdID)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(e.Status))
	copy(buf[8:], e.Data)

	return buf
}

// ParseCommandResult parses an EVENT body carrying a command result
func ParseCommandResult(body []byte) (*CommandResult, error) {
	if len(body) < 8 {
		return nil, ErrBodyTooShort
	}

	evtType := binary.LittleEndian.Uint16(body[0:2])
	if evtType != EvtCmdResult {
		return nil, ErrBodyTooShort
	}

	evtLen := int(binary.LittleEndian.Uint16(body[2:4]))
	if evtLen < 4 || len(body) < 4+evtLen {
		return nil, ErrBadBodyLen
	}

	data := make([]byte, evtLen-4)
	copy(data, body[8:4+evtLen])

	return &CommandResult{
		CmdID:  binary.LittleEndian.Uint16(body[4:6]),
		Status: int16(binary.LittleEndian.Uint16(body[6:8])),
		Data:   data,
	}, nil
}
