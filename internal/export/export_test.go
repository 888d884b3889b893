package export

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/sweeney/walk-tracker/internal/logic"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestExportEmptyPathFails(t *testing.T) {
	sink := NewFakeSink()
	e := New(sink)

	_, err := e.Export(nil)
	require.ErrorIs(t, err, ErrEmptyPath)
	_, err = e.Export([]logic.Coordinate{})
	require.ErrorIs(t, err, ErrEmptyPath)
	require.Empty(t, sink.Names)
}

func TestExportTwoPointsInOrder(t *testing.T) {
	sink := NewFakeSink()
	e := New(sink, WithClock(fixedClock(1767225600000)))

	name, err := e.Export([]logic.Coordinate{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})
	require.NoError(t, err)
	require.Equal(t, "walk_1767225600000.gpx", name)

	data := sink.Files[name]
	require.Equal(t, 2, strings.Count(string(data), "<trkpt"))
	require.Contains(t, string(data), `version="1.1"`)

	doc, err := gpx.ParseBytes(data)
	require.NoError(t, err)
	require.Len(t, doc.Tracks, 1)
	require.Len(t, doc.Tracks[0].Segments, 1)
	points := doc.Tracks[0].Segments[0].Points
	require.Len(t, points, 2)
	require.Equal(t, 0.0, points[0].Latitude)
	require.Equal(t, 0.0, points[0].Longitude)
	require.Equal(t, 0.0, points[1].Latitude)
	require.Equal(t, 1.0, points[1].Longitude)
}

func TestEncodeKeepsSubMillimetrePrecision(t *testing.T) {
	in := logic.Coordinate{Lat: 51.123456789012, Lng: -0.987654321098}
	data, err := Encode([]logic.Coordinate{in})
	require.NoError(t, err)

	doc, err := gpx.ParseBytes(data)
	require.NoError(t, err)
	p := doc.Tracks[0].Segments[0].Points[0]
	// Coordinates are written with 9 decimals, about 0.1 mm.
	require.InDelta(t, in.Lat, p.Latitude, 1e-9)
	require.InDelta(t, in.Lng, p.Longitude, 1e-9)
	require.True(t, p.Elevation.Null())
	require.True(t, p.Timestamp.IsZero())
}

func TestExportNamesAreUnique(t *testing.T) {
	sink := NewFakeSink()
	e := New(sink, WithClock(fixedClock(1000)))
	path := []logic.Coordinate{{Lat: 1, Lng: 2}}

	first, err := e.Export(path)
	require.NoError(t, err)
	second, err := e.Export(path)
	require.NoError(t, err)

	require.Equal(t, "walk_1000.gpx", first)
	require.Equal(t, "walk_1001.gpx", second)
}

func TestExportSurfacesSinkErrorUnchanged(t *testing.T) {
	sink := NewFakeSink()
	errIO := errors.New("read-only file system")
	sink.WriteError = errIO

	_, err := New(sink).Export([]logic.Coordinate{{Lat: 1, Lng: 2}})
	require.Same(t, errIO, err)
}

func TestDirSinkWritesFile(t *testing.T) {
	dir := t.TempDir()
	e := New(NewDirSink(dir), WithClock(fixedClock(42)))

	dest, err := e.Export([]logic.Coordinate{{Lat: 51.5, Lng: -0.12}, {Lat: 51.51, Lng: -0.13}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "walk_42.gpx"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(string(data), "<trkpt"))
}

func TestDirSinkRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walk_7.gpx"), []byte("keep"), 0o644))

	_, err := NewDirSink(dir).Write("walk_7.gpx", []byte("new"))
	require.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(filepath.Join(dir, "walk_7.gpx"))
	require.NoError(t, err)
	require.Equal(t, "keep", string(data))
}

func TestDirSinkMissingDirectory(t *testing.T) {
	sink := NewDirSink(filepath.Join(t.TempDir(), "missing"))
	_, err := New(sink).Export([]logic.Coordinate{{Lat: 1, Lng: 1}})
	require.ErrorIs(t, err, fs.ErrNotExist)
}
