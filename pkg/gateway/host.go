// Package gateway surfaces MDP traffic to a host computer: a
// line-delimited JSON stream mirroring every radio frame, an inbound
// command line format, an HTTP API, and Prometheus metrics.
package gateway

import (
	"bufio"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MycoBrain/mycobrain-node/pkg/envelope"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// CommandRequest is one host-submitted command on its way to the
// radio. Reply receives the outcome exactly once.
type CommandRequest struct {
	Cmd   uint16
	Dst   uint8
	Data  []byte
	Reply chan CommandResult
}

// CommandResult reports whether a command reached the radio queue
type CommandResult struct {
	Seq uint32
	Err error
}

// FrameLine is the JSON object emitted for every frame received from
// the radio
type FrameLine struct {
	TMS   uint32      `json:"t_ms"`
	Src   uint8       `json:"src"`
	Dst   uint8       `json:"dst"`
	Seq   uint32      `json:"seq"`
	Ack   uint32      `json:"ack"`
	Type  uint8       `json:"type"`
	Flags uint8       `json:"flags"`
	Env   *EnvSummary `json:"env,omitempty"`
}

// EnvSummary is the decoded envelope attached to telemetry lines when
// the body parses as a canonical envelope
type EnvSummary struct {
	DeviceID   string        `json:"device_id"`
	DeviceRole string        `json:"device_role"`
	TsMS       int64         `json:"ts_ms"`
	Seq        uint32        `json:"seq"`
	Readings   []ReadingLine `json:"readings"`
	Verified   bool          `json:"verified"`
}

// ReadingLine is one scaled sensor reading
type ReadingLine struct {
	SID     uint16  `json:"sid"`
	V       float64 `json:"v"`
	Unit    uint16  `json:"unit"`
	Quality uint8   `json:"q"`
}

// commandLine is the inbound host line shape. Data is []int because
// encoding/json reads []byte as base64, not a number array.
type commandLine struct {
	Cmd  *uint16 `json:"cmd"`
	Dst  *uint8  `json:"dst"`
	Data []int   `json:"data"`
}

func dataBytes(data []int) []byte {
	out := make([]byte, len(data))
	for i, v := range data {
		out[i] = byte(v)
	}
	return out
}

// Host is the byte-stream interface to the machine the gateway is
// plugged into. Inbound lines become CommandRequests; outbound frames
// and results are written one JSON object per line.
type Host struct {
	mu sync.Mutex
	w  io.Writer

	commands chan CommandRequest

	// VerifyKey enables envelope verification in telemetry lines;
	// nil marks every envelope unverified
	VerifyKey ed25519.PublicKey
}

// NewHost starts reading command lines from r. Pass nil to run
// write-only (commands arrive over HTTP instead).
func NewHost(r io.Reader, w io.Writer) *Host {
	h := &Host{
		w:        w,
		commands: make(chan CommandRequest, 16),
	}
	if r != nil {
		go h.readLoop(r)
	}
	return h
}

// Commands is the stream of host-submitted commands
func (h *Host) Commands() <-chan CommandRequest {
	return h.commands
}

// Submit offers a command into the stream without blocking; false
// means the queue is saturated
func (h *Host) Submit(req CommandRequest) bool {
	select {
	case h.commands <- req:
		return true
	default:
		return false
	}
}

func (h *Host) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 4096), 4096)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cl commandLine
		if err := json.Unmarshal(line, &cl); err != nil || cl.Cmd == nil {
			h.writeLine(map[string]string{"error": "json_parse"})
			continue
		}

		dst := mdp.EndpointOrigin
		if cl.Dst != nil {
			dst = *cl.Dst
		}

		req := CommandRequest{
			Cmd:   *cl.Cmd,
			Dst:   dst,
			Data:  dataBytes(cl.Data),
			Reply: make(chan CommandResult, 1),
		}

		select {
		case h.commands <- req:
			go h.awaitResult(req)
		default:
			h.writeLine(map[string]string{"error": "busy"})
		}
	}
}

func (h *Host) awaitResult(req CommandRequest) {
	select {
	case res := <-req.Reply:
		if res.Err != nil {
			h.writeLine(map[string]string{"error": res.Err.Error()})
			return
		}
		h.writeLine(map[string]any{"sent": true, "seq": res.Seq})
	case <-time.After(5 * time.Second):
		h.writeLine(map[string]string{"error": "timeout"})
	}
}

func (h *Host) writeLine(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	enc := json.NewEncoder(h.w)
	_ = enc.Encode(v)
}

// EmitReady prints the startup banner line
func (h *Host) EmitReady() {
	h.writeLine(map[string]any{"side": "gateway", "mdp": int(mdp.ProtocolVersion), "status": "ready"})
}

// EmitFrame mirrors one received frame to the host. Telemetry bodies
// that parse as canonical envelopes are decoded and summarized.
func (h *Host) EmitFrame(tMS uint32, hdr mdp.Header, body []byte) {
	line := FrameLine{
		TMS:   tMS,
		Src:   hdr.Src,
		Dst:   hdr.Dst,
		Seq:   hdr.Seq,
		Ack:   hdr.Ack,
		Type:  hdr.MsgType,
		Flags: hdr.Flags,
	}

	if hdr.MsgType == mdp.MsgTypeTelemetry && len(body) > 0 {
		line.Env = h.summarize(body)
	}

	h.writeLine(line)
}

func (h *Host) summarize(body []byte) *EnvSummary {
	dec, err := envelope.Decode(body)
	if err != nil {
		return nil
	}

	verified, _ := envelope.Verify(body, h.VerifyKey)

	sum := &EnvSummary{
		DeviceID:   dec.DeviceID,
		DeviceRole: dec.DeviceRole,
		TsMS:       dec.TimestampMS,
		Seq:        dec.Seq,
		Verified:   verified,
	}
	for _, r := range dec.Readings {
		sum.Readings = append(sum.Readings, ReadingLine{
			SID:     r.SensorID,
			V:       r.Float(),
			Unit:    r.Unit,
			Quality: r.Quality,
		})
	}
	return sum
}
