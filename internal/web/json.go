package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sweeney/walk-tracker/internal/export"
	"github.com/sweeney/walk-tracker/internal/history"
	"github.com/sweeney/walk-tracker/internal/observability"
	"github.com/sweeney/walk-tracker/internal/position"
	"github.com/sweeney/walk-tracker/internal/settings"
	"github.com/sweeney/walk-tracker/internal/walk"
)

// WalkResponse is returned by the start and stop endpoints.
type WalkResponse struct {
	Phase      string          `json:"phase"`
	DistanceM  float64         `json:"distance_m"`
	EnergyKcal float64         `json:"energy_kcal"`
	DurationS  int             `json:"duration_s"`
	Points     int             `json:"points"`
	Recorded   bool            `json:"recorded"`
	Session    *SessionSummary `json:"session,omitempty"`
	Warning    string          `json:"warning,omitempty"`
}

// SessionSummary describes a recorded walk without its path.
type SessionSummary struct {
	Index      int     `json:"index"`
	DistanceM  float64 `json:"distance_m"`
	EnergyKcal float64 `json:"energy_kcal"`
	DurationS  int     `json:"duration_s"`
	Points     int     `json:"points"`
}

// HistoryResponse lists recorded walks, most recent last.
type HistoryResponse struct {
	Count    int              `json:"count"`
	Sessions []SessionSummary `json:"sessions"`
}

// ExportResponse reports where an export was written.
type ExportResponse struct {
	Location string `json:"location"`
	Points   int    `json:"points"`
}

// WeightRequest is the body of PUT /settings/weight.
type WeightRequest struct {
	WeightKg *float64 `json:"weight_kg"`
}

// WeightResponse echoes the stored weight.
type WeightResponse struct {
	WeightKg float64 `json:"weight_kg"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func summarize(i int, s history.WalkSession) SessionSummary {
	return SessionSummary{
		Index:      i,
		DistanceM:  s.DistanceMeters,
		EnergyKcal: s.EnergyKcal,
		DurationS:  s.DurationSeconds,
		Points:     s.PointCount(),
	}
}

func walkResponse(m walk.Metrics) WalkResponse {
	return WalkResponse{
		Phase:      string(m.Phase),
		DistanceM:  m.DistanceMeters,
		EnergyKcal: m.EnergyKcal,
		DurationS:  m.DurationSeconds,
		Points:     m.PointCount(),
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, settings.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrEmptyPath):
		return http.StatusConflict
	case errors.Is(err, position.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, position.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	sessions := s.ctl.History.All()
	resp := HistoryResponse{Count: len(sessions), Sessions: make([]SessionSummary, len(sessions))}
	for i, session := range sessions {
		resp.Sessions[i] = summarize(i, session)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := s.ctl.Walker.Start(r.Context()); err != nil {
		s.tracker.SetLastError(err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.tracker.SetLastError(nil)
	writeJSON(w, http.StatusOK, walkResponse(s.ctl.Walker.CurrentMetrics()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	session, err := s.ctl.Walker.Stop(r.Context())
	resp := walkResponse(s.ctl.Walker.CurrentMetrics())
	if session != nil {
		resp.Recorded = true
		idx := -1
		if s.ctl.History != nil {
			idx = len(s.ctl.History.All()) - 1
		}
		summary := summarize(idx, *session)
		resp.Session = &summary
	}
	if err != nil {
		if !errors.Is(err, history.ErrPersistence) {
			writeError(w, statusFor(err), err.Error())
			return
		}
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	path := s.ctl.Walker.CurrentMetrics().Path
	if q := r.URL.Query().Get("session"); q != "" {
		if s.ctl.History == nil {
			writeError(w, http.StatusNotFound, "no history")
			return
		}
		sessions := s.ctl.History.All()
		i, err := strconv.Atoi(q)
		if err != nil || i < 0 || i >= len(sessions) {
			writeError(w, http.StatusNotFound, "no such session")
			return
		}
		path = sessions[i].Path
	}

	location, err := s.ctl.Exporter.Export(path)
	observability.RecordExport(err)
	if err != nil {
		s.logger.Printf("web: export failed: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.tracker.SetLastExport(location)
	writeJSON(w, http.StatusOK, ExportResponse{Location: location, Points: len(path)})
}

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPut) {
		return
	}
	var req WeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WeightKg == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"weight_kg\": number}")
		return
	}
	if err := s.ctl.Settings.Update(r.Context(), *req.WeightKg); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.tracker.SetWeight(*req.WeightKg)
	writeJSON(w, http.StatusOK, WeightResponse{WeightKg: *req.WeightKg})
}
