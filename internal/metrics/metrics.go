// Package metrics exposes prometheus collectors for the globe surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_frames_total",
		Help: "Total number of surface update passes",
	})
	TilesLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_tiles_loaded_total",
		Help: "Total terrain tiles that finished loading",
	})
	TilesFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_tiles_failed_total",
		Help: "Total terrain tile geometry requests that failed",
	})
	TilesEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "globe_tiles_evicted_total",
		Help: "Total tiles freed by the replacement queue",
	})
	ImageryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "globe_imagery_requests_total",
		Help: "Imagery requests by result",
	}, []string{"result"})
	FetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "globe_fetch_duration_ms",
		Help:    "Tile fetch duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000},
	}, []string{"kind"})
	TilesRendered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_tiles_rendered",
		Help: "Tiles selected for rendering in the last frame",
	})
	TilesWaitingForChildren = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_tiles_waiting_for_children",
		Help: "Tiles rendered in place of children that are still loading",
	})
	LoadQueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "globe_load_queue_length",
		Help: "Tiles queued for loading by priority tier",
	}, []string{"tier"})
	ResidentTiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "globe_resident_tiles",
		Help: "Tiles held in the replacement queue",
	})
)

func init() {
	prometheus.MustRegister(FramesTotal)
	prometheus.MustRegister(TilesLoadedTotal)
	prometheus.MustRegister(TilesFailedTotal)
	prometheus.MustRegister(TilesEvictedTotal)
	prometheus.MustRegister(ImageryRequestsTotal)
	prometheus.MustRegister(FetchDurationMs)
	prometheus.MustRegister(TilesRendered)
	prometheus.MustRegister(TilesWaitingForChildren)
	prometheus.MustRegister(LoadQueueLength)
	prometheus.MustRegister(ResidentTiles)
}

// Handler returns the prometheus scrape handler for mounting on /metrics.
func Handler() http.Handler { return promhttp.Handler() }
