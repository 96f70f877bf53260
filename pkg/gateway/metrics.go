package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mycobrain",
			Name:      "frames_total",
			Help:      "Frames received per link, by message type.",
		},
		[]string{"link", "type"},
	)

	FrameDrops = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mycobrain",
			Name:      "frame_drops",
			Help:      "Frames dropped per link for corruption or protocol mismatch.",
		},
		[]string{"link"},
	)

	QueueInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mycobrain",
			Name:      "queue_in_flight",
			Help:      "Occupied reliability slots per link edge.",
		},
		[]string{"link"},
	)

	HostLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mycobrain",
			Name:      "host_lines_total",
			Help:      "JSON lines emitted on the host stream.",
		},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mycobrain",
			Name:      "commands_total",
			Help:      "Host commands accepted, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(FramesTotal, FrameDrops, QueueInFlight, HostLinesTotal, CommandsTotal)
}

// MetricsHandler serves the gateway registry
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
