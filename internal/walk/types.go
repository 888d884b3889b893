package walk

import (
	"time"

	"github.com/sweeney/walk-tracker/internal/history"
	"github.com/sweeney/walk-tracker/internal/logic"
)

// Phase is the lifecycle phase of the engine.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseTracking Phase = "TRACKING"
)

// Metrics is a point-in-time view of the engine.
// It is a value type; Path must be treated as read-only.
type Metrics struct {
	Phase           Phase
	DistanceMeters  float64
	EnergyKcal      float64
	DurationSeconds int
	WeightKg        float64
	Path            []logic.Coordinate

	// Epoch identifies the tracking period; it increments on every start.
	Epoch     uint64
	StartedAt time.Time
	StoppedAt time.Time
}

// PointCount returns the number of recorded coordinates.
func (m Metrics) PointCount() int {
	return len(m.Path)
}

// Tracking reports whether the engine is tracking.
func (m Metrics) Tracking() bool {
	return m.Phase == PhaseTracking
}

// EventType identifies what changed.
type EventType string

const (
	EventStarted EventType = "started"
	EventSample  EventType = "sample"
	EventTick    EventType = "tick"
	EventWeight  EventType = "weight"
	EventStopped EventType = "stopped"
)

// Event is delivered to observers after every applied change.
type Event struct {
	Type    EventType
	Time    time.Time
	Metrics Metrics

	// Session is the recorded walk on EventStopped, nil when the walk was
	// below the minimum distance.
	Session *history.WalkSession

	// Err is the position source error that stopped the walk, if any.
	Err error

	// PersistErr is the history write failure on EventStopped, if any.
	PersistErr error
}
