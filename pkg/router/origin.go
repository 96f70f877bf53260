package router

import (
	"crypto/ed25519"
	"errors"
	"log"
	"time"

	"github.com/MycoBrain/mycobrain-node/pkg/durable"
	"github.com/MycoBrain/mycobrain-node/pkg/effector"
	"github.com/MycoBrain/mycobrain-node/pkg/envelope"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
	"github.com/MycoBrain/mycobrain-node/pkg/reliability"
	"github.com/MycoBrain/mycobrain-node/pkg/sensor"
)

// OriginConfig carries the identity and signing material for an
// origin node
type OriginConfig struct {
	DeviceID   string
	DeviceRole string
	Proto      uint8

	// SigningKey nil means placeholder signatures (bring-up mode)
	SigningKey ed25519.PrivateKey

	// TimeNow supplies epoch milliseconds for envelope timestamps;
	// nil uses the wall clock
	TimeNow func() int64

	Logger *log.Logger
}

// Origin is the Side-A role: it senses, acts, and produces signed
// telemetry. Unacked telemetry survives reboots through the durable
// ring and is replayed with its original sequence numbers.
type Origin struct {
	cfg    OriginConfig
	edge   *Edge
	ring   *durable.Ring
	source sensor.Source
	eff    effector.Effector

	// Interval returns the telemetry period in ms; the effector owns
	// it so CMD_SET_TELEM_MS takes effect immediately
	Interval func() uint32

	lastTelemetryMS uint64
	peerAlive       bool
}

// NewOrigin wires the origin role. The reliability queue's ack path is
// connected to the durable ring, and the outbound counter resumes
// above the highest persisted seq so numbers never repeat across
// reboots.
func NewOrigin(cfg OriginConfig, edge *Edge, ring *durable.Ring, source sensor.Source, eff effector.Effector) *Origin {
	if cfg.TimeNow == nil {
		cfg.TimeNow = func() int64 { return time.Now().UnixMilli() }
	}

	o := &Origin{
		cfg:    cfg,
		edge:   edge,
		ring:   ring,
		source: source,
		eff:    eff,
	}
	o.Interval = func() uint32 { return 1000 }
	if ref, ok := eff.(*effector.Reference); ok {
		o.Interval = func() uint32 { return ref.TelemetryMS }
	}

	edge.Queue.SetNextSeq(ring.TxSeq() + 1)
	edge.Queue.OnAcked = func(cumulative uint32) {
		if err := ring.Ack(cumulative); err != nil {
			o.logf("durable ack %d failed: %v", cumulative, err)
		}
	}

	return o
}

func (o *Origin) logf(format string, args ...any) {
	if o.cfg.Logger != nil {
		o.cfg.Logger.Printf(format, args...)
	}
}

// Boot replays every durable slot into the live reliability queue in
// seq order, then announces the node. Runs once before the first Step;
// no new telemetry is generated until it returns.
func (o *Origin) Boot(nowMS uint64) error {
	err := o.ring.Replay(func(seq uint32, payload []byte) error {
		if err := o.edge.EnqueueOwned(nowMS, seq, payload); err != nil {
			return err
		}
		return nil
	})
	if err != nil && !errors.Is(err, reliability.ErrQueueFull) {
		return err
	}
	if errors.Is(err, reliability.ErrQueueFull) {
		// the overflow stays durable; it is replayed on the next boot
		// unless a cumulative ack frees it first
		o.logf("replay truncated: reliability queue full")
	}

	o.edge.SendHello(nowMS)
	return nil
}

// Step runs one loop iteration: poll the link, handle inbound
// messages, pump retransmissions, and generate telemetry when due
func (o *Origin) Step(nowMS uint64) {
	for _, in := range o.edge.Poll() {
		o.handle(nowMS, in)
	}

	o.edge.Pump(nowMS, true)
	o.maybeTelemetry(nowMS)
}

func (o *Origin) handle(nowMS uint64, in Inbound) {
	if in.Dup {
		// duplicate: the ack was already rescheduled, the body is not
		// reprocessed
		return
	}

	switch in.Header.MsgType {
	case mdp.MsgTypeCommand:
		if in.Header.Dst != o.edge.LocalEndpoint && in.Header.Dst != mdp.EndpointBroadcast {
			return
		}
		o.dispatchCommand(nowMS, in)

	case mdp.MsgTypeHello:
		o.peerAlive = true

	case mdp.MsgTypeAck:
		// bookkeeping already folded in by Poll
	}
}

func (o *Origin) dispatchCommand(nowMS uint64, in Inbound) {
	var result mdp.CommandResult

	cmd, err := mdp.ParseCommand(in.Body)
	switch {
	case errors.Is(err, mdp.ErrBodyTooShort), errors.Is(err, mdp.ErrBadBodyLen):
		result = mdp.CommandResult{Status: mdp.StatusBadLength}
	case err != nil:
		result = mdp.CommandResult{Status: mdp.StatusParseFail}
	default:
		status, data := o.eff.Dispatch(cmd.ID, cmd.Data)
		result = mdp.CommandResult{CmdID: cmd.ID, Status: status, Data: data}
	}

	if _, err := o.edge.Send(nowMS, mdp.MsgTypeEvent, in.Header.Src, result.Encode(), true); err != nil {
		// fail fast: the commander times out and may retry
		o.logf("event for cmd %#04x dropped: %v", result.CmdID, err)
	}
}

func (o *Origin) maybeTelemetry(nowMS uint64) {
	if o.lastTelemetryMS != 0 && nowMS-o.lastTelemetryMS < uint64(o.Interval()) {
		return
	}

	sample, ok := o.source.ReadSample()
	if !ok {
		return
	}
	o.lastTelemetryMS = nowMS

	seq := o.edge.Queue.NextSeq()

	env := envelope.Envelope{
		DeviceID:    o.cfg.DeviceID,
		DeviceRole:  o.cfg.DeviceRole,
		Proto:       o.cfg.Proto,
		MsgID:       envelope.NewMsgID(),
		TimestampMS: o.cfg.TimeNow(),
		Seq:         seq,
		MonoMS:      nowMS,
	}
	for ch, v := range sample.Channels {
		env.Readings = append(env.Readings, envelope.Reading{
			SensorID: uint16(ch + 1),
			Value:    int32(v),
			Scale:    0,
			Unit:     1,
			Quality:  sample.Flags,
		})
	}

	body, err := env.BuildSigned(o.cfg.SigningKey)
	if err != nil {
		o.logf("envelope build failed: %v", err)
		return
	}

	h := mdp.NewHeader(mdp.MsgTypeTelemetry, o.edge.LocalEndpoint, o.edge.PeerEndpoint)
	h.Seq = seq
	h.Ack = o.edge.Queue.PeerLastInorder()
	h.SetFlag(mdp.FlagAckRequested)
	payload := append(h.Encode(), body...)

	// durable first: the slot must be recoverable before the first
	// transmission is attempted
	if err := o.ring.Enqueue(seq, payload); err != nil {
		o.logf("durable enqueue seq %d failed: %v", seq, err)
	}

	if err := o.edge.EnqueueOwned(nowMS, seq, payload); err != nil {
		// no free slot: the durable copy carries it to the next epoch
		o.logf("telemetry seq %d not sent live: %v", seq, err)
	}
}
