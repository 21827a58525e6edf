package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Syncs          *prometheus.CounterVec // labels: class, result (ok|fetch_error|store_error)
	VehiclesStored *prometheus.GaugeVec   // label: class

	SyncDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_syncs_total",
			Help: "Total sync cycles by class and result.",
		}, []string{"class", "result"}),
		VehiclesStored: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_vehicles_stored",
			Help: "Vehicles stored by the most recent successful sync, per class.",
		}, []string{"class"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_sync_duration_seconds",
			Help:    "Duration of one fetch-and-replace cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.Syncs, c.VehiclesStored, c.SyncDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
