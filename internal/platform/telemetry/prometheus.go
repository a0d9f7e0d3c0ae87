package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CollectionStats reports collection state for the scrape endpoint.
type CollectionStats interface {
	Len() int
	CategoryCount() int
}

// SyncStats reports the time of the last successful sync.
type SyncStats interface {
	LastSync() time.Time
}

// RegisterCollectionGauges exposes collection and sync state as Prometheus
// gauges evaluated at scrape time.
func RegisterCollectionGauges(reg prometheus.Registerer, coll CollectionStats, sync SyncStats) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quotesync",
			Name:      "quotes",
			Help:      "Number of quotes in the local collection.",
		}, func() float64 { return float64(coll.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quotesync",
			Name:      "categories",
			Help:      "Number of distinct categories in the local collection.",
		}, func() float64 { return float64(coll.CategoryCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "quotesync",
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last successful sync, 0 if never.",
		}, func() float64 {
			t := sync.LastSync()
			if t.IsZero() {
				return 0
			}

			return float64(t.UnixMilli()) / 1000
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}
