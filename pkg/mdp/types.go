package mdp

// Protocol constants
const (
	// Magic number for MDP frames
	ProtocolMagic uint16 = 0xA15A

	// Protocol version
	ProtocolVersion uint8 = 1

	// Header size
	HeaderSize = 16

	// Buffer limits
	MaxFrame   = 1200
	MaxPayload = 900
)

// Endpoint addresses
const (
	EndpointOrigin    uint8 = 0xA1 // Side-A
	EndpointRouter    uint8 = 0xB1 // Side-B
	EndpointGateway   uint8 = 0xC0
	EndpointBroadcast uint8 = 0xFF
)

// Message types
const (
	// Core (0x01-0x06)
	MsgTypeTelemetry uint8 = 0x01
	MsgTypeCommand   uint8 = 0x02
	MsgTypeAck       uint8 = 0x03
	MsgTypeEvent     uint8 = 0x05
	MsgTypeHello     uint8 = 0x06

	// Domain extensions (0x07+); bodies are opaque to the core
	MsgTypeWiFiSense          uint8 = 0x07
	MsgTypeDroneTelemetry     uint8 = 0x08
	MsgTypeDroneMissionStatus uint8 = 0x09
)

// Flags
const (
	FlagAckRequested uint8 = 0x01
	FlagIsAck        uint8 = 0x02
	FlagIsNack       uint8 = 0x04
)

// Command IDs (0x0001-0x0009). IDs above 0x0009 are owned by the
// effector and routed transparently.
const (
	CmdSetI2C     uint16 = 0x0001
	CmdScanI2C    uint16 = 0x0002
	CmdSetTelemMS uint16 = 0x0003
	CmdSetMOS     uint16 = 0x0004
	CmdSaveNVS    uint16 = 0x0007
	CmdLoadNVS    uint16 = 0x0008
	CmdReboot     uint16 = 0x0009
)

// Event types
const (
	EvtCmdResult uint16 = 0x0001
)

// Command result statuses
const (
	StatusOK             int16 = 0
	StatusUnknownCmd     int16 = -1
	StatusBadLength      int16 = -2
	StatusBadArg         int16 = -3
	StatusParseFail      int16 = -4
	StatusValidationFail int16 = -5
	StatusQueueFull      int16 = -6
)

// EndpointName returns a printable name for an endpoint address
func EndpointName(ep uint8) string {
	switch ep {
	case EndpointOrigin:
		return "origin"
	case EndpointRouter:
		return "router"
	case EndpointGateway:
		return "gateway"
	case EndpointBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}
