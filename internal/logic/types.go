// Package logic contains pure business logic for walk tracking.
// This package has NO external dependencies (no MQTT, GPIO, storage, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Coordinate is a latitude/longitude pair in decimal degrees.
// Values are accepted as delivered by the position source; range is not enforced.
type Coordinate struct {
	Lat float64
	Lng float64
}

// ButtonState represents the debounced state of a push button.
type ButtonState string

const (
	ButtonReleased ButtonState = "RELEASED"
	ButtonPressed  ButtonState = "PRESSED"
)

// ButtonInput represents a single sample of the button line.
type ButtonInput struct {
	Pressed bool // true = pressed (already inverted from raw GPIO)
	Time    time.Time
}
