// Package metrics exposes Prometheus instrumentation for the relation
// layer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Publication metrics
	ResourcePublishes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacelink_resource_publishes_total",
			Help: "Total number of resource configurations published to the peer",
		},
	)

	PublishNoops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacelink_publish_noops_total",
			Help: "Total number of publish calls skipped because the configuration was unchanged",
		},
	)

	ResourceDeletes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pacelink_resource_deletes_total",
			Help: "Total number of resources marked for deletion",
		},
	)

	// Relation metrics
	PeersConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pacelink_peers_connected",
			Help: "Number of peer units currently connected on the relation",
		},
	)

	Clustered = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pacelink_clustered",
			Help: "Whether the peer reports the cluster as formed (1 = clustered)",
		},
	)
)

func init() {
	prometheus.MustRegister(ResourcePublishes)
	prometheus.MustRegister(PublishNoops)
	prometheus.MustRegister(ResourceDeletes)
	prometheus.MustRegister(PeersConnected)
	prometheus.MustRegister(Clustered)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
