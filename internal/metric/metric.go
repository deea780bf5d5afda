// Package metric holds the process-wide Prometheus collectors.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DocumentsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orgcal_documents_loaded_total",
		Help: "Org documents read and parsed successfully",
	})
	DocumentsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgcal_documents_failed_total",
		Help: "Org documents that could not be loaded, by failure kind",
	}, []string{"kind"})
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orgcal_events_emitted_total",
		Help: "Calendar events produced, by traversal mode",
	}, []string{"mode"})
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orgcal_refresh_duration_seconds",
		Help:    "Time spent rebuilding the event snapshot",
		Buckets: prometheus.DefBuckets,
	})
	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orgcal_refresh_failures_total",
		Help: "Snapshot rebuilds that ended in an error",
	})
	SnapshotEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orgcal_snapshot_events",
		Help: "Number of events in the current snapshot",
	})
	SnapshotTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orgcal_snapshot_timestamp_seconds",
		Help: "Unix time of the last successful snapshot rebuild",
	})
)

// ObserveRefresh records one rebuild that started at begin.
func ObserveRefresh(begin time.Time, events int, err error) {
	RefreshDuration.Observe(time.Since(begin).Seconds())
	if err != nil {
		RefreshFailures.Inc()
		return
	}
	SnapshotEvents.Set(float64(events))
	SnapshotTimestamp.Set(float64(time.Now().Unix()))
}
