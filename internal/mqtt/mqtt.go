// Package mqtt publishes walk events to an MQTT broker, with an abstraction
// for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic is the default MQTT topic for walk events.
const Topic = "walk/tracker/events"

// TopicSystem is the default MQTT topic for system lifecycle events.
const TopicSystem = "walk/tracker/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishWalk sends a walk event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishWalk(event WalkEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// WalkEventType identifies a walk lifecycle message.
type WalkEventType string

const (
	WalkStarted  WalkEventType = "WALK_STARTED"
	WalkProgress WalkEventType = "WALK_PROGRESS"
	WalkStopped  WalkEventType = "WALK_STOPPED"
)

// WalkEvent is one walk lifecycle message.
type WalkEvent struct {
	ID              string
	Timestamp       time.Time
	Type            WalkEventType
	DistanceMeters  float64
	EnergyKcal      float64
	DurationSeconds int
	Points          int

	// Recorded is set on WALK_STOPPED when the walk was stored in history.
	Recorded bool

	// Reason explains an unusual stop, e.g. a position source failure.
	Reason string
}

// NewWalkEvent returns an event of type t with a fresh ID.
func NewWalkEvent(t WalkEventType, ts time.Time) WalkEvent {
	return WalkEvent{ID: uuid.NewString(), Timestamp: ts, Type: t}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Retained  bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Walk WalkPayload `json:"walk"`
}

// WalkPayload contains the walk event details.
type WalkPayload struct {
	ID         string  `json:"id"`
	Timestamp  string  `json:"timestamp"`
	Event      string  `json:"event"`
	DistanceM  float64 `json:"distance_m"`
	EnergyKcal float64 `json:"energy_kcal"`
	DurationS  int     `json:"duration_s"`
	Points     int     `json:"points"`
	Recorded   bool    `json:"recorded,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a walk event.
func FormatPayload(event WalkEvent) ([]byte, error) {
	payload := Payload{
		Walk: WalkPayload{
			ID:         event.ID,
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			DistanceM:  event.DistanceMeters,
			EnergyKcal: event.EnergyKcal,
			DurationS:  event.DurationSeconds,
			Points:     event.Points,
			Recorded:   event.Recorded,
			Reason:     event.Reason,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
