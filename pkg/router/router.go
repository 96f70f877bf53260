package router

import (
	"log"

	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// Router is the Side-B role: it bridges the wired link to the origin
// and the radio link to the gateway, rewriting only the 16-byte header
// as traffic crosses. Forwarding is reliable on both hops so the
// origin's durable queue has an end-to-end ack chain to trust. A frame
// is never emitted on the link it arrived on.
type Router struct {
	a  *Edge // wired link to the origin
	gw *Edge // radio link to the gateway

	Logger *log.Logger
}

// NewRouter wires the two edges
func NewRouter(a, gw *Edge) *Router {
	return &Router{a: a, gw: gw}
}

func (r *Router) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// Boot announces the node on both links
func (r *Router) Boot(nowMS uint64) {
	r.a.SendHello(nowMS)
	r.gw.SendHello(nowMS)
}

// Step runs one loop iteration: poll both links, apply the forward
// table, pump both reliability queues
func (r *Router) Step(nowMS uint64) {
	for _, in := range r.a.Poll() {
		r.handleFromOrigin(nowMS, in)
	}
	for _, in := range r.gw.Poll() {
		r.handleFromGateway(nowMS, in)
	}

	r.a.Pump(nowMS, false)
	r.gw.Pump(nowMS, false)
}

func (r *Router) handleFromOrigin(nowMS uint64, in Inbound) {
	if in.Dup {
		return
	}

	switch in.Header.MsgType {
	case mdp.MsgTypeAck, mdp.MsgTypeHello:
		// consumed locally

	case mdp.MsgTypeCommand:
		// commands only flow gateway-to-origin; nothing to do here

	default:
		// telemetry, events, and domain extensions all ride to the
		// gateway with the body untouched
		if _, err := r.gw.Forward(nowMS, in.Header, in.Body); err != nil {
			r.logf("forward seq %d to gateway failed: %v", in.Header.Seq, err)
		}
	}
}

func (r *Router) handleFromGateway(nowMS uint64, in Inbound) {
	if in.Dup {
		return
	}

	switch in.Header.MsgType {
	case mdp.MsgTypeAck, mdp.MsgTypeHello:
		// consumed locally

	case mdp.MsgTypeCommand:
		if _, err := r.a.Forward(nowMS, in.Header, in.Body); err != nil {
			r.logf("forward cmd seq %d to origin failed: %v", in.Header.Seq, err)
		}

	default:
		// telemetry flowing down from the gateway would be a loop;
		// drop it
	}
}
