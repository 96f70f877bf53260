// Package router implements the three MDP node roles — Origin,
// Router, Gateway — as cooperative state machines over link edges.
// Each role is stepped from a single-threaded loop: poll links, pump
// reliability, then do role work. No component blocks.
package router

import (
	"log"

	"github.com/MycoBrain/mycobrain-node/pkg/codec"
	"github.com/MycoBrain/mycobrain-node/pkg/link"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
	"github.com/MycoBrain/mycobrain-node/pkg/reliability"
)

// Inbound is one validated message received on an edge
type Inbound struct {
	Header mdp.Header
	Body   []byte
	Dup    bool
}

// Edge binds one link to its reliability queue and the codec. An edge
// is a directed relationship with a single peer; its sequence spaces
// never mix with another edge's.
type Edge struct {
	Name          string
	LocalEndpoint uint8
	PeerEndpoint  uint8
	Link          link.Link
	Queue         *reliability.Queue
	RTOms         uint32

	// Logger receives drop and abandon diagnostics; nil is silent
	Logger *log.Logger

	drops uint64
}

// NewEdge wires a link into a fresh reliability queue
func NewEdge(name string, local, peer uint8, l link.Link, slots int, rtoMS uint32) *Edge {
	e := &Edge{
		Name:          name,
		LocalEndpoint: local,
		PeerEndpoint:  peer,
		Link:          l,
		RTOms:         rtoMS,
	}
	e.Queue = reliability.NewQueue(slots)
	e.Queue.Send = e.transmit
	e.Queue.OnAbandon = func(seq uint32) {
		e.logf("edge %s: seq %d abandoned after %d retransmissions", e.Name, seq, reliability.MaxRetries)
	}
	return e
}

func (e *Edge) transmit(payload []byte) error {
	frame, err := codec.Encode(payload)
	if err != nil {
		return err
	}
	return e.Link.Send(frame)
}

func (e *Edge) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// Drops returns the count of frames discarded at this edge for
// corruption or protocol mismatch. Link-level corruption never
// surfaces above here.
func (e *Edge) Drops() uint64 {
	return e.drops + e.Link.Drops()
}

// Poll decodes every frame waiting on the link and folds each into
// the edge bookkeeping: cumulative ack, in-order tracking, pending-ack
// scheduling. Corrupt or foreign frames are dropped silently.
func (e *Edge) Poll() []Inbound {
	var out []Inbound

	for _, raw := range e.Link.Poll() {
		payload, err := codec.Decode(raw)
		if err != nil {
			e.drops++
			e.logf("edge %s: frame rejected: %v", e.Name, err)
			continue
		}
		if len(payload) < mdp.HeaderSize {
			e.drops++
			continue
		}

		var h mdp.Header
		if err := h.Decode(payload); err != nil {
			e.drops++
			continue
		}
		if err := h.Validate(); err != nil {
			e.drops++
			continue
		}

		e.Queue.OnAck(h.Ack)
		dup := e.Queue.OnReceive(h.Seq, h.HasFlag(mdp.FlagAckRequested))

		out = append(out, Inbound{
			Header: h,
			Body:   payload[mdp.HeaderSize:],
			Dup:    dup,
		})
	}

	return out
}

// Send builds a message on this edge: fresh seq, piggybacked ack.
// Reliable sends occupy a retransmit slot until acked; unreliable
// sends go out once.
func (e *Edge) Send(nowMS uint64, msgType, dst uint8, body []byte, reliable bool) (uint32, error) {
	h := mdp.NewHeader(msgType, e.LocalEndpoint, dst)
	h.Seq = e.Queue.NextSeq()
	h.Ack = e.Queue.PeerLastInorder()
	if reliable {
		h.SetFlag(mdp.FlagAckRequested)
	}

	payload := append(h.Encode(), body...)

	if reliable {
		return h.Seq, e.Queue.Enqueue(h.Seq, payload, e.RTOms, true, nowMS)
	}
	return h.Seq, e.transmit(payload)
}

// EnqueueOwned places a prebuilt payload whose header already carries
// seq into the retransmit queue. Used for durable replay, where stored
// headers keep their original numbers.
func (e *Edge) EnqueueOwned(nowMS uint64, seq uint32, payload []byte) error {
	return e.Queue.Enqueue(seq, payload, e.RTOms, true, nowMS)
}

// Forward rewrites an inbound header for this edge and enqueues the
// message reliably. The body bytes are reused untouched: the envelope
// is signed over them.
func (e *Edge) Forward(nowMS uint64, h mdp.Header, body []byte) (uint32, error) {
	h.Src = e.LocalEndpoint
	h.Dst = e.PeerEndpoint
	h.Seq = e.Queue.NextSeq()
	h.Ack = e.Queue.PeerLastInorder()
	h.SetFlag(mdp.FlagAckRequested)

	payload := append(h.Encode(), body...)
	return h.Seq, e.Queue.Enqueue(h.Seq, payload, e.RTOms, true, nowMS)
}

// SendHello announces this node on the edge (best-effort broadcast)
func (e *Edge) SendHello(nowMS uint64) {
	if _, err := e.Send(nowMS, mdp.MsgTypeHello, mdp.EndpointBroadcast, nil, false); err != nil {
		e.logf("edge %s: hello failed: %v", e.Name, err)
	}
}

// Pump retransmits due slots and flushes at most one coalesced
// ACK-only frame carrying the latest in-order mark. requestAckBack
// makes the ACK itself reliable, keeping both sequence spaces tight;
// only the origin does this.
func (e *Edge) Pump(nowMS uint64, requestAckBack bool) {
	e.Queue.Pump(nowMS)

	if !e.Queue.TakeAckPending() {
		return
	}

	h := mdp.NewHeader(mdp.MsgTypeAck, e.LocalEndpoint, e.PeerEndpoint)
	h.Seq = e.Queue.NextSeq()
	h.Ack = e.Queue.PeerLastInorder()
	h.SetFlag(mdp.FlagIsAck)

	if requestAckBack {
		h.SetFlag(mdp.FlagAckRequested)
		if err := e.Queue.Enqueue(h.Seq, h.Encode(), e.RTOms, true, nowMS); err != nil {
			e.logf("edge %s: ack enqueue failed: %v", e.Name, err)
		}
		return
	}

	if err := e.transmit(h.Encode()); err != nil {
		e.logf("edge %s: ack send failed: %v", e.Name, err)
	}
}
