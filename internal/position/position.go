// Package position provides location sources that feed the tracking engine.
// Real sources subscribe to MQTT location fixes or replay a GPX file.
// The fake source allows testing without either.
package position

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/walk-tracker/internal/logic"
)

var (
	// ErrPermissionDenied indicates access to the location source was refused.
	ErrPermissionDenied = errors.New("position: permission denied")

	// ErrUnavailable indicates no position fix could be obtained.
	ErrUnavailable = errors.New("position: unavailable")
)

// Accuracy is a hint for the horizontal accuracy wanted from a source.
type Accuracy int

const (
	AccuracyBest Accuracy = iota
	AccuracyBalanced
	AccuracyLow
)

// MaxErrorMeters returns the largest reported horizontal error accepted for
// the hint. Sources that do not report accuracy ignore it.
func (a Accuracy) MaxErrorMeters() float64 {
	switch a {
	case AccuracyBalanced:
		return 100
	case AccuracyLow:
		return 500
	default:
		return 25
	}
}

func (a Accuracy) String() string {
	switch a {
	case AccuracyBalanced:
		return "balanced"
	case AccuracyLow:
		return "low"
	default:
		return "best"
	}
}

// ParseAccuracy parses "best", "balanced" or "low". Empty means best.
func ParseAccuracy(s string) (Accuracy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "best":
		return AccuracyBest, nil
	case "balanced":
		return AccuracyBalanced, nil
	case "low":
		return AccuracyLow, nil
	}
	return AccuracyBest, fmt.Errorf("position: unknown accuracy %q", s)
}

// Options configures a continuous subscription.
type Options struct {
	// MinDistanceMeters suppresses fixes closer than this to the last
	// delivered one. Zero delivers every fix.
	MinDistanceMeters float64

	// Accuracy is the wanted accuracy.
	Accuracy Accuracy
}

// Update is one delivery on a subscription: a coordinate or a source error.
type Update struct {
	Coord logic.Coordinate
	Err   error
}

// Subscription is a cancellable stream of updates.
type Subscription interface {
	// Updates returns the delivery channel. It is not closed; stop reading
	// after Cancel.
	Updates() <-chan Update

	// Cancel stops deliveries. Safe to call more than once.
	Cancel()
}

// Source delivers positions.
type Source interface {
	// CurrentPosition returns a single fix.
	// Errors wrap ErrPermissionDenied or ErrUnavailable.
	CurrentPosition(ctx context.Context) (logic.Coordinate, error)

	// Subscribe starts a continuous subscription.
	// Errors wrap ErrPermissionDenied or ErrUnavailable.
	Subscribe(ctx context.Context, opts Options) (Subscription, error)
}

// filter applies the movement threshold and accuracy hint of Options.
// Not safe for concurrent use.
type filter struct {
	opts Options
	last *logic.Coordinate
}

// accept reports whether c should be delivered. accuracy is the reported
// horizontal error in meters, or zero when unknown.
func (f *filter) accept(c logic.Coordinate, accuracy float64) bool {
	if accuracy > 0 && accuracy > f.opts.Accuracy.MaxErrorMeters() {
		return false
	}
	if f.last != nil && f.opts.MinDistanceMeters > 0 &&
		logic.Distance(*f.last, c) < f.opts.MinDistanceMeters {
		return false
	}
	last := c
	f.last = &last
	return true
}
