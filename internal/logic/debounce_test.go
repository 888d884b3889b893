package logic

import (
	"testing"
	"time"
)

func baselinedDebouncer(t *testing.T, pressed bool) (*Debouncer, time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(50 * time.Millisecond)
	d.Process(ButtonInput{Pressed: pressed, Time: now})
	d.Process(ButtonInput{Pressed: pressed, Time: now.Add(50 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Fatal("debouncer should be baselined")
	}
	return d, now.Add(50 * time.Millisecond)
}

func TestDebouncerBaselineNeverFires(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(50 * time.Millisecond)

	// Held down at boot: becomes baseline, not a press.
	for i := 0; i < 5; i++ {
		if d.Process(ButtonInput{Pressed: true, Time: now.Add(time.Duration(i) * 20 * time.Millisecond)}) {
			t.Fatalf("sample %d: press reported during baseline", i)
		}
	}
	if d.State() != ButtonPressed {
		t.Errorf("state = %s, want PRESSED", d.State())
	}
}

func TestDebouncerPress(t *testing.T) {
	d, now := baselinedDebouncer(t, false)

	if d.Process(ButtonInput{Pressed: true, Time: now.Add(10 * time.Millisecond)}) {
		t.Fatal("press reported before debounce elapsed")
	}
	if d.Process(ButtonInput{Pressed: true, Time: now.Add(40 * time.Millisecond)}) {
		t.Fatal("press reported before debounce elapsed")
	}
	if !d.Process(ButtonInput{Pressed: true, Time: now.Add(60 * time.Millisecond)}) {
		t.Fatal("expected press after debounce")
	}
	if d.Presses() != 1 {
		t.Errorf("presses = %d, want 1", d.Presses())
	}

	// Holding does not repeat.
	if d.Process(ButtonInput{Pressed: true, Time: now.Add(500 * time.Millisecond)}) {
		t.Error("press repeated while held")
	}

	// Release is not a press.
	d.Process(ButtonInput{Pressed: false, Time: now.Add(600 * time.Millisecond)})
	if d.Process(ButtonInput{Pressed: false, Time: now.Add(700 * time.Millisecond)}) {
		t.Error("release reported as press")
	}
	if d.State() != ButtonReleased {
		t.Errorf("state = %s, want RELEASED", d.State())
	}
}

func TestDebouncerBounceIgnored(t *testing.T) {
	d, now := baselinedDebouncer(t, false)

	samples := []bool{true, false, true, false, true, false}
	for i, p := range samples {
		if d.Process(ButtonInput{Pressed: p, Time: now.Add(time.Duration(i+1) * 10 * time.Millisecond)}) {
			t.Fatalf("sample %d: bounce reported as press", i)
		}
	}
	if d.Presses() != 0 {
		t.Errorf("presses = %d, want 0", d.Presses())
	}
}
