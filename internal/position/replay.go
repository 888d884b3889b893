package position

import (
	"context"
	"fmt"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/sweeney/walk-tracker/internal/logic"
)

// ReplaySource replays the track points of a GPX document as live fixes,
// one per interval. Useful for demos and field-free testing of the daemon.
type ReplaySource struct {
	points   []logic.Coordinate
	interval time.Duration
}

// NewReplaySource creates a source replaying points every interval.
func NewReplaySource(points []logic.Coordinate, interval time.Duration) *ReplaySource {
	if interval <= 0 {
		interval = time.Second
	}
	return &ReplaySource{points: points, interval: interval}
}

// LoadReplayFile reads every track point of the GPX file at path, in order.
func LoadReplayFile(path string, interval time.Duration) (*ReplaySource, error) {
	doc, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay: parse %s: %w", path, err)
	}
	return NewReplaySource(trackPoints(doc), interval), nil
}

// LoadReplayBytes reads every track point of a GPX document, in order.
func LoadReplayBytes(data []byte, interval time.Duration) (*ReplaySource, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("replay: parse: %w", err)
	}
	return NewReplaySource(trackPoints(doc), interval), nil
}

func trackPoints(doc *gpx.GPX) []logic.Coordinate {
	var points []logic.Coordinate
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				points = append(points, logic.Coordinate{Lat: p.Latitude, Lng: p.Longitude})
			}
		}
	}
	return points
}

// Len returns the number of points that will be replayed.
func (r *ReplaySource) Len() int {
	return len(r.points)
}

// CurrentPosition returns the first point of the track.
func (r *ReplaySource) CurrentPosition(context.Context) (logic.Coordinate, error) {
	if len(r.points) == 0 {
		return logic.Coordinate{}, fmt.Errorf("%w: replay track is empty", ErrUnavailable)
	}
	return r.points[0], nil
}

// Subscribe starts replaying from the first point. When the track is
// exhausted the subscription stays open and silent.
func (r *ReplaySource) Subscribe(ctx context.Context, opts Options) (Subscription, error) {
	if len(r.points) == 0 {
		return nil, fmt.Errorf("%w: replay track is empty", ErrUnavailable)
	}

	st := newStream(1, nil)
	go r.play(ctx, st, &filter{opts: opts})
	return st, nil
}

func (r *ReplaySource) play(ctx context.Context, st *stream, f *filter) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for _, c := range r.points {
		if f.accept(c, 0) && !st.send(Update{Coord: c}) {
			return
		}
		select {
		case <-ticker.C:
		case <-st.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
