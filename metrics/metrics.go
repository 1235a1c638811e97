// Package metrics exposes the two counters the packet-handler core
// maintains, under a metrics source named "packet-handler" (spec.md §6).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PacketHandler implements lifecycle.Metrics with Prometheus counters.
// client_golang arrives transitively via go-libp2p-pubsub's own metrics;
// this is its first direct use in this codebase.
type PacketHandler struct {
	blocksReceived      prometheus.Counter
	blocksReceivedAgain prometheus.Counter
}

// NewPacketHandler constructs and registers the counters against reg.
// Pass prometheus.NewRegistry() for an isolated registry in tests.
func NewPacketHandler(reg prometheus.Registerer) *PacketHandler {
	m := &PacketHandler{
		blocksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "packet_handler",
			Name:      "blocks_received_total",
			Help:      "Total BlockMessage packets received.",
		}),
		blocksReceivedAgain: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "packet_handler",
			Name:      "blocks_received_again_total",
			Help:      "Total BlockMessage packets received for an already-known block.",
		}),
	}
	reg.MustRegister(m.blocksReceived, m.blocksReceivedAgain)
	return m
}

func (m *PacketHandler) IncBlocksReceived()      { m.blocksReceived.Inc() }
func (m *PacketHandler) IncBlocksReceivedAgain() { m.blocksReceivedAgain.Inc() }
