package logic

import "time"

// Debouncer turns raw button samples into debounced press edges.
// A state must be observed continuously for the debounce duration before it
// becomes stable. The first stable state is the baseline and never fires.
type Debouncer struct {
	debounceDuration time.Duration
	stable           ButtonState
	pending          ButtonState
	pendingSince     time.Time
	baselined        bool
	presses          int
}

// NewDebouncer creates a debouncer with the given debounce duration.
func NewDebouncer(debounceDuration time.Duration) *Debouncer {
	return &Debouncer{debounceDuration: debounceDuration}
}

// Process takes a new sample and reports whether a press completed:
// a debounced transition from released to pressed.
func (d *Debouncer) Process(input ButtonInput) bool {
	state := ButtonReleased
	if input.Pressed {
		state = ButtonPressed
	}

	if !d.baselined {
		if d.pending == "" || d.pending != state {
			d.pending = state
			d.pendingSince = input.Time
			return false
		}
		if input.Time.Sub(d.pendingSince) >= d.debounceDuration {
			d.stable = state
			d.baselined = true
			d.pending = ""
		}
		return false
	}

	if state == d.stable {
		d.pending = ""
		return false
	}

	if d.pending != state {
		d.pending = state
		d.pendingSince = input.Time
		return false
	}

	if input.Time.Sub(d.pendingSince) < d.debounceDuration {
		return false
	}

	d.stable = state
	d.pending = ""
	if state == ButtonPressed {
		d.presses++
		return true
	}
	return false
}

// IsBaselined reports whether the initial stable state is known.
func (d *Debouncer) IsBaselined() bool {
	return d.baselined
}

// State returns the current stable state (empty before baseline).
func (d *Debouncer) State() ButtonState {
	return d.stable
}

// Presses returns the number of presses detected since creation.
func (d *Debouncer) Presses() int {
	return d.presses
}
