// Package history persists completed walks as an append-only log.
package history

import (
	"encoding/json"

	"github.com/sweeney/walk-tracker/internal/logic"
)

// WalkSession is one completed walk. It is never mutated after creation.
type WalkSession struct {
	DistanceMeters  float64
	EnergyKcal      float64
	DurationSeconds int
	Path            []logic.Coordinate
}

// PointCount returns the number of recorded coordinates.
func (s WalkSession) PointCount() int {
	return len(s.Path)
}

// sessionJSON is the persisted representation of a WalkSession.
type sessionJSON struct {
	Distance float64     `json:"distance"`
	Calories float64     `json:"calories"`
	Seconds  int         `json:"seconds"`
	Path     []pointJSON `json:"path"`
}

type pointJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marshal encodes sessions as the persisted JSON array.
func Marshal(sessions []WalkSession) ([]byte, error) {
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		path := make([]pointJSON, 0, len(s.Path))
		for _, c := range s.Path {
			path = append(path, pointJSON{Lat: c.Lat, Lng: c.Lng})
		}
		out = append(out, sessionJSON{
			Distance: s.DistanceMeters,
			Calories: s.EnergyKcal,
			Seconds:  s.DurationSeconds,
			Path:     path,
		})
	}
	return json.Marshal(out)
}

// Unmarshal decodes the persisted JSON array.
func Unmarshal(data []byte) ([]WalkSession, error) {
	var in []sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	sessions := make([]WalkSession, 0, len(in))
	for _, s := range in {
		path := make([]logic.Coordinate, 0, len(s.Path))
		for _, p := range s.Path {
			path = append(path, logic.Coordinate{Lat: p.Lat, Lng: p.Lng})
		}
		sessions = append(sessions, WalkSession{
			DistanceMeters:  s.Distance,
			EnergyKcal:      s.Calories,
			DurationSeconds: s.Seconds,
			Path:            path,
		})
	}
	return sessions, nil
}
