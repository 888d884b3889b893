package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Walk          WalkJSON   `json:"walk"`
	WeightKg      float64    `json:"weight_kg"`
	HistoryCount  int        `json:"history_count"`
	LastExport    string     `json:"last_export,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// WalkJSON is the JSON representation of the engine metrics.
type WalkJSON struct {
	Phase      string  `json:"phase"`
	Epoch      uint64  `json:"epoch"`
	DistanceM  float64 `json:"distance_m"`
	EnergyKcal float64 `json:"energy_kcal"`
	DurationS  int     `json:"duration_s"`
	Points     int     `json:"points"`
	WeightKg   float64 `json:"weight_kg"`
	StartedAt  string  `json:"started_at,omitempty"`
	StoppedAt  string  `json:"stopped_at,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker            string  `json:"broker"`
	HTTPAddr          string  `json:"http_addr"`
	PositionSource    string  `json:"position_source"`
	Storage           string  `json:"storage"`
	PublishIntervalMs int64   `json:"publish_interval_ms"`
	ButtonPin         int     `json:"button_pin,omitempty"`
	MinDistanceM      float64 `json:"min_distance_m"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Walk.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	return StatusInner{
		Walk: WalkJSON{
			Phase:      phase,
			Epoch:      snap.Walk.Epoch,
			DistanceM:  snap.Walk.DistanceMeters,
			EnergyKcal: snap.Walk.EnergyKcal,
			DurationS:  snap.Walk.DurationSeconds,
			Points:     snap.Walk.PointCount(),
			WeightKg:   snap.Walk.WeightKg,
			StartedAt:  formatTime(snap.Walk.StartedAt),
			StoppedAt:  formatTime(snap.Walk.StoppedAt),
		},
		WeightKg:      snap.WeightKg,
		HistoryCount:  snap.HistoryCount,
		LastExport:    snap.LastExport,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
			PositionSource:    snap.Config.PositionSource,
			Storage:           snap.Config.Storage,
			PublishIntervalMs: snap.Config.PublishIntervalMs,
			ButtonPin:         snap.Config.ButtonPin,
			MinDistanceM:      snap.Config.MinDistanceM,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
