package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors exported by the signaling server. Registered on the default
// registry so promhttp.Handler() picks them up.
var (
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_active_connections",
		Help: "Number of currently open websocket connections.",
	})

	RegisteredClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_registered_clients",
		Help: "Number of connections that completed name registration.",
	})

	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_active_rooms",
		Help: "Number of rooms with at least one member.",
	})

	EnvelopesForwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signaling_envelopes_forwarded_total",
		Help: "Offer/answer/candidate envelopes relayed to their target.",
	})

	EnvelopesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_envelopes_dropped_total",
		Help: "Inbound envelopes dropped instead of routed, by reason.",
	}, []string{"reason"})
)

// Drop reasons. Kept in one place so dashboards do not chase typos.
const (
	ReasonUnregistered  = "unregistered_sender"
	ReasonSpoofed       = "spoofed_sender"
	ReasonUnknownTarget = "unknown_target"
	ReasonUnknownType   = "unknown_type"
)

func init() {
	prometheus.MustRegister(
		ActiveConnections,
		RegisteredClients,
		ActiveRooms,
		EnvelopesForwarded,
		EnvelopesDropped,
	)
}
