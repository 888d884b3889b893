// Package web provides the HTTP status and control server for the
// walk-tracker daemon.
package web

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/walk-tracker/internal/history"
	"github.com/sweeney/walk-tracker/internal/logic"
	"github.com/sweeney/walk-tracker/internal/status"
	"github.com/sweeney/walk-tracker/internal/walk"
)

// Walker starts and stops walks.
type Walker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*history.WalkSession, error)
	CurrentMetrics() walk.Metrics
}

// HistoryReader lists recorded walks.
type HistoryReader interface {
	All() []history.WalkSession
}

// WeightUpdater validates and stores a new body weight.
type WeightUpdater interface {
	Update(ctx context.Context, kg float64) error
}

// TrackExporter writes a path as a track file.
type TrackExporter interface {
	Export(path []logic.Coordinate) (string, error)
}

// Controls are the collaborators behind the control endpoints.
// Endpoints whose collaborator is nil are not registered.
type Controls struct {
	Walker   Walker
	History  HistoryReader
	Settings WeightUpdater
	Exporter TrackExporter
	Logger   *log.Logger
}

// Server serves the status page and control API over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	ctl        Controls
	logger     *log.Logger
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, ctl Controls) *Server {
	s := &Server{tracker: tracker, ctl: ctl, logger: ctl.Logger}
	if s.logger == nil {
		s.logger = log.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.Handle("/metrics", promhttp.Handler())
	if ctl.History != nil {
		mux.HandleFunc("/history.json", s.handleHistory)
	}
	if ctl.Walker != nil {
		mux.HandleFunc("/walk/start", s.handleStart)
		mux.HandleFunc("/walk/stop", s.handleStop)
	}
	if ctl.Exporter != nil && ctl.Walker != nil {
		mux.HandleFunc("/walk/export", s.handleExport)
	}
	if ctl.Settings != nil {
		mux.HandleFunc("/settings/weight", s.handleWeight)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request multiplexer.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.ctl.Walker != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
