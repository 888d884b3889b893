// Package export writes recorded walks as GPX 1.1 track files.
package export

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/sweeney/walk-tracker/internal/logic"
)

// ErrEmptyPath is returned when asked to export a path with no points.
var ErrEmptyPath = errors.New("export: path has no points")

// Creator is written into the gpx creator attribute.
const Creator = "walk-tracker"

// Sink stores an exported document under name and returns where it went.
type Sink interface {
	Write(name string, data []byte) (string, error)
}

// Exporter serializes paths and hands them to a Sink.
type Exporter struct {
	sink Sink
	now  func() time.Time

	mu       sync.Mutex
	lastName int64
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// New creates an Exporter writing to sink.
func New(sink Sink, opts ...Option) *Exporter {
	e := &Exporter{sink: sink, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export encodes path and writes it as walk_<epoch-millis>.gpx.
// It returns the sink's destination identifier. Sink errors are returned unchanged.
func (e *Exporter) Export(path []logic.Coordinate) (string, error) {
	data, err := Encode(path)
	if err != nil {
		return "", err
	}
	return e.sink.Write(e.nextName(), data)
}

// nextName returns a timestamp-based file name, moving forward one
// millisecond when the clock has not advanced since the previous export.
func (e *Exporter) nextName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms := e.now().UnixMilli()
	if ms <= e.lastName {
		ms = e.lastName + 1
	}
	e.lastName = ms
	return fmt.Sprintf("walk_%d.gpx", ms)
}

// Encode serializes path as a GPX 1.1 document with one track and one
// segment. Points carry latitude and longitude only, in recorded order.
func Encode(path []logic.Coordinate) ([]byte, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}

	segment := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(path))}
	for _, c := range path {
		segment.Points = append(segment.Points, gpx.GPXPoint{
			Point: gpx.Point{Latitude: c.Lat, Longitude: c.Lng},
		})
	}

	doc := &gpx.GPX{
		Version: "1.1",
		Creator: Creator,
		Tracks: []gpx.GPXTrack{{
			Segments: []gpx.GPXTrackSegment{segment},
		}},
	}

	data, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("export: encode gpx: %w", err)
	}
	return data, nil
}
