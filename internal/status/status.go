// Package status provides a thread-safe status tracker for the walk-tracker
// daemon. It is read by the HTTP handlers and the MQTT progress publisher.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/walk-tracker/internal/walk"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker            string
	HTTPAddr          string
	PositionSource    string // "mqtt" or "replay"
	Storage           string // "redis" or "memory"
	PublishIntervalMs int64
	ButtonPin         int // 0 = no button
	MinDistanceM      float64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; safe to use after the lock is released.
type Snapshot struct {
	Walk          walk.Metrics
	WeightKg      float64
	HistoryCount  int
	LastExport    string
	LastError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Walk:      walk.Metrics{Phase: walk.PhaseIdle},
		},
	}
}

// UpdateWalk stores the latest engine metrics. Called from the run loop on
// every engine event.
func (t *Tracker) UpdateWalk(m walk.Metrics) {
	t.mu.Lock()
	t.snap.Walk = m
	t.mu.Unlock()
}

// SetWeight sets the configured body weight.
func (t *Tracker) SetWeight(kg float64) {
	t.mu.Lock()
	t.snap.WeightKg = kg
	t.mu.Unlock()
}

// SetHistoryCount sets the number of recorded walks.
func (t *Tracker) SetHistoryCount(n int) {
	t.mu.Lock()
	t.snap.HistoryCount = n
	t.mu.Unlock()
}

// SetLastExport records the location of the most recent export.
func (t *Tracker) SetLastExport(location string) {
	t.mu.Lock()
	t.snap.LastExport = location
	t.mu.Unlock()
}

// SetLastError records the most recent tracking failure; nil clears it.
func (t *Tracker) SetLastError(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.mu.Lock()
	t.snap.LastError = msg
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
