package router

import (
	"fmt"
	"log"

	"github.com/MycoBrain/mycobrain-node/pkg/gateway"
	"github.com/MycoBrain/mycobrain-node/pkg/mdp"
)

// Gateway is the gateway role: it consumes telemetry and events off
// the radio, mirrors every frame to the host stream, and turns host
// commands into reliable COMMAND frames in the gateway→B sequence
// space.
type Gateway struct {
	edge *Edge
	host *gateway.Host

	Logger *log.Logger
}

// NewGateway wires the radio edge to the host interface
func NewGateway(edge *Edge, host *gateway.Host) *Gateway {
	return &Gateway{edge: edge, host: host}
}

func (g *Gateway) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}

// Boot prints the ready banner and announces the node on the radio
func (g *Gateway) Boot(nowMS uint64) {
	g.host.EmitReady()
	g.edge.SendHello(nowMS)
}

// Step runs one loop iteration: poll the radio, mirror frames to the
// host, inject pending host commands, pump retransmissions
func (g *Gateway) Step(nowMS uint64) {
	for _, in := range g.edge.Poll() {
		gateway.FramesTotal.WithLabelValues(g.edge.Name, fmt.Sprintf("%#02x", in.Header.MsgType)).Inc()
		gateway.HostLinesTotal.Inc()
		g.host.EmitFrame(uint32(nowMS), in.Header, in.Body)
	}

	g.drainCommands(nowMS)
	g.edge.Pump(nowMS, false)

	gateway.FrameDrops.WithLabelValues(g.edge.Name).Set(float64(g.edge.Drops()))
	gateway.QueueInFlight.WithLabelValues(g.edge.Name).Set(float64(g.edge.Queue.InFlight()))
}

// drainCommands moves every pending host command onto the radio. The
// channel is bounded, so one pass per step keeps the loop prompt.
func (g *Gateway) drainCommands(nowMS uint64) {
	for {
		select {
		case req := <-g.host.Commands():
			g.sendCommand(nowMS, req)
		default:
			return
		}
	}
}

func (g *Gateway) sendCommand(nowMS uint64, req gateway.CommandRequest) {
	body := (&mdp.Command{ID: req.Cmd, Data: req.Data}).Encode()

	seq, err := g.edge.Send(nowMS, mdp.MsgTypeCommand, req.Dst, body, true)
	if err != nil {
		g.logf("command %#04x rejected: %v", req.Cmd, err)
	}

	if req.Reply != nil {
		req.Reply <- gateway.CommandResult{Seq: seq, Err: err}
	}
}

// Status snapshots the gateway's counters for the HTTP API
func (g *Gateway) Status() map[string]interface{} {
	return map[string]interface{}{
		"peer_acked":   g.edge.Queue.PeerAcked(),
		"last_inorder": g.edge.Queue.PeerLastInorder(),
		"in_flight":    g.edge.Queue.InFlight(),
		"frame_drops":  g.edge.Drops(),
	}
}
