// Package observability exposes Prometheus metrics for the walk-tracker daemon.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/walk-tracker/internal/walk"
)

var (
	walksRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walk_tracker",
		Subsystem: "engine",
		Name:      "walks_recorded_total",
		Help:      "Number of walks long enough to be stored in history.",
	})
	walksDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walk_tracker",
		Subsystem: "engine",
		Name:      "walks_discarded_total",
		Help:      "Number of walks stopped below the minimum recorded distance.",
	})
	walksFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walk_tracker",
		Subsystem: "engine",
		Name:      "walks_source_failures_total",
		Help:      "Number of walks ended by a position source error.",
	})
	positionSamples = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walk_tracker",
		Subsystem: "engine",
		Name:      "position_samples_total",
		Help:      "Number of position samples applied to a walk.",
	})
	persistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "walk_tracker",
		Subsystem: "history",
		Name:      "persist_failures_total",
		Help:      "Number of walks kept in memory because the durable write failed.",
	})
	exports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walk_tracker",
		Subsystem: "export",
		Name:      "exports_total",
		Help:      "Number of GPX export attempts grouped by result.",
	}, []string{"result"})
	currentDistance = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walk_tracker",
		Subsystem: "engine",
		Name:      "current_distance_meters",
		Help:      "Distance of the current or most recent walk.",
	})
	tracking = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "walk_tracker",
		Subsystem: "engine",
		Name:      "tracking",
		Help:      "1 while a walk is being tracked, 0 otherwise.",
	})
)

func init() {
	prometheus.MustRegister(walksRecorded, walksDiscarded, walksFailed, positionSamples,
		persistFailures, exports, currentDistance, tracking)
}

// RecordEvent updates the metrics from an engine event.
func RecordEvent(ev walk.Event) {
	currentDistance.Set(ev.Metrics.DistanceMeters)
	switch ev.Type {
	case walk.EventStarted:
		tracking.Set(1)
	case walk.EventSample:
		positionSamples.Inc()
	case walk.EventStopped:
		tracking.Set(0)
		if ev.Session != nil {
			walksRecorded.Inc()
		} else {
			walksDiscarded.Inc()
		}
		if ev.Err != nil {
			walksFailed.Inc()
		}
		if ev.PersistErr != nil {
			persistFailures.Inc()
		}
	}
}

// RecordExport counts an export attempt.
func RecordExport(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	exports.WithLabelValues(result).Inc()
}
