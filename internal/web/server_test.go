package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/walk-tracker/internal/export"
	"github.com/sweeney/walk-tracker/internal/history"
	"github.com/sweeney/walk-tracker/internal/kv"
	"github.com/sweeney/walk-tracker/internal/logic"
	"github.com/sweeney/walk-tracker/internal/position"
	"github.com/sweeney/walk-tracker/internal/settings"
	"github.com/sweeney/walk-tracker/internal/status"
	"github.com/sweeney/walk-tracker/internal/walk"
)

// idleTicker never fires; tests drive the engine directly.
type idleTicker struct{}

func (idleTicker) C() <-chan time.Time { return nil }
func (idleTicker) Stop()               {}

type testEnv struct {
	ts       *httptest.Server
	tracker  *status.Tracker
	source   *position.FakeSource
	mem      *kv.Memory
	engine   *walk.Engine
	history  *history.Store
	settings *settings.Store
	sink     *export.FakeSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	env := &testEnv{
		source: position.NewFakeSource(),
		mem:    kv.NewMemory(),
		sink:   export.NewFakeSink(),
	}
	env.history = history.New(env.mem, history.WithLogger(quiet))
	env.settings = settings.New(env.mem, settings.WithLogger(quiet))
	env.engine = walk.New(env.source, env.history,
		walk.WithLogger(quiet),
		walk.WithTicker(func(time.Duration) walk.Ticker { return idleTicker{} }))
	env.settings.OnChange(env.engine.SetWeight)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.tracker = status.NewTracker(start, status.Config{
		Broker:   "tcp://192.168.1.200:1883",
		HTTPAddr: ":8080",
		Storage:  "memory",
	})
	srv := New(":0", env.tracker, Controls{
		Walker:   env.engine,
		History:  env.history,
		Settings: env.settings,
		Exporter: export.New(env.sink),
		Logger:   quiet,
	})
	env.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, env.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return v
}

func (env *testEnv) walkNorth(steps int) {
	for i := 0; i < steps; i++ {
		env.engine.OnPositionSample(logic.Coordinate{Lat: 51.5 + float64(i)*0.0001, Lng: -0.12})
	}
}

func TestJSONEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.UpdateWalk(walk.Metrics{Phase: walk.PhaseTracking, DistanceMeters: 42})
	env.tracker.SetMQTTConnected(true)

	resp := env.do(t, http.MethodGet, "/index.json", "")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := decode[status.StatusJSON](t, resp)
	if sj.Status.Walk.Phase != "TRACKING" || sj.Status.Walk.DistanceM != 42 {
		t.Errorf("walk: %+v", sj.Status.Walk)
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("mqtt: %+v", sj.Status.MQTT)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/", "/index.html"} {
		resp := env.do(t, http.MethodGet, path, "")
		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q", path, ct)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), "Walk Tracker") || !strings.Contains(string(body), "/walk/start") {
			t.Errorf("%s body missing title or controls", path)
		}
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestEnv(t)
	if resp := env.do(t, http.MethodGet, "/nonexistent", ""); resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "walk_tracker_engine_position_samples_total") {
		t.Error("metrics output missing walk tracker counters")
	}
}

func TestStartStopRecordsWalk(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/walk/start", "")
	if resp.StatusCode != 200 {
		t.Fatalf("start status: got %d", resp.StatusCode)
	}
	if got := decode[WalkResponse](t, resp); got.Phase != "TRACKING" {
		t.Errorf("start phase: got %q", got.Phase)
	}

	env.walkNorth(4)

	resp = env.do(t, http.MethodPost, "/walk/stop", "")
	if resp.StatusCode != 200 {
		t.Fatalf("stop status: got %d", resp.StatusCode)
	}
	got := decode[WalkResponse](t, resp)
	if got.Phase != "IDLE" || !got.Recorded || got.Session == nil {
		t.Fatalf("stop response: %+v", got)
	}
	if got.Session.Index != 0 || got.Session.Points != 4 || got.Warning != "" {
		t.Errorf("session: %+v", got.Session)
	}

	hist := decode[HistoryResponse](t, env.do(t, http.MethodGet, "/history.json", ""))
	if hist.Count != 1 || hist.Sessions[0].DistanceM != got.DistanceM {
		t.Errorf("history: %+v", hist)
	}
}

func TestStopShortWalkNotRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/walk/start", "")
	env.walkNorth(1)

	got := decode[WalkResponse](t, env.do(t, http.MethodPost, "/walk/stop", ""))
	if got.Recorded || got.Session != nil {
		t.Errorf("short walk recorded: %+v", got)
	}
}

func TestStopPersistFailureIsWarning(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/walk/start", "")
	env.walkNorth(3)
	env.mem.WriteErr = errors.New("disk full")

	resp := env.do(t, http.MethodPost, "/walk/stop", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	got := decode[WalkResponse](t, resp)
	if !got.Recorded || got.Warning == "" {
		t.Errorf("response: %+v", got)
	}
}

func TestStartErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{position.ErrPermissionDenied, http.StatusForbidden},
		{position.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t)
			env.source.SubscribeErr = tt.err

			resp := env.do(t, http.MethodPost, "/walk/start", "")
			if resp.StatusCode != tt.want {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.want)
			}
			if body := decode[ErrorResponse](t, resp); body.Error == "" {
				t.Error("expected error message")
			}
			if env.tracker.Snapshot().LastError == "" {
				t.Error("last error not recorded")
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/walk/start", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
	if resp.Header.Get("Allow") != http.MethodPost {
		t.Errorf("Allow: got %q", resp.Header.Get("Allow"))
	}
}

func TestExportCurrentWalk(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/walk/start", "")
	env.walkNorth(3)

	resp := env.do(t, http.MethodPost, "/walk/export", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	got := decode[ExportResponse](t, resp)
	if got.Points != 3 || !strings.HasPrefix(got.Location, "walk_") {
		t.Errorf("export: %+v", got)
	}
	if len(env.sink.Names) != 1 {
		t.Errorf("files written: %d", len(env.sink.Names))
	}
	if env.tracker.Snapshot().LastExport != got.Location {
		t.Error("last export not recorded")
	}
}

func TestExportEmptyPathConflict(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/walk/export", "")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status: got %d, want 409", resp.StatusCode)
	}
	if len(env.sink.Names) != 0 {
		t.Error("nothing should be written")
	}
}

func TestExportHistorySession(t *testing.T) {
	env := newTestEnv(t)
	env.history.Append(context.Background(), history.WalkSession{
		DistanceMeters: 20,
		Path:           []logic.Coordinate{{Lat: 1, Lng: 1}, {Lat: 1.0001, Lng: 1}},
	})

	got := decode[ExportResponse](t, env.do(t, http.MethodPost, "/walk/export?session=0", ""))
	if got.Points != 2 {
		t.Errorf("points: got %d, want 2", got.Points)
	}

	if resp := env.do(t, http.MethodPost, "/walk/export?session=5", ""); resp.StatusCode != 404 {
		t.Errorf("missing session status: got %d, want 404", resp.StatusCode)
	}
}

func TestExportSinkFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sink.WriteError = errors.New("read-only file system")
	env.do(t, http.MethodPost, "/walk/start", "")
	env.walkNorth(2)

	if resp := env.do(t, http.MethodPost, "/walk/export", ""); resp.StatusCode != 500 {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}

func TestUpdateWeight(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/walk/start", "")
	env.walkNorth(5)

	resp := env.do(t, http.MethodPut, "/settings/weight", `{"weight_kg": 85}`)
	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if got := decode[WeightResponse](t, resp); got.WeightKg != 85 {
		t.Errorf("weight: got %v", got.WeightKg)
	}
	if env.settings.Weight() != 85 || env.tracker.Snapshot().WeightKg != 85 {
		t.Error("weight not stored")
	}
	if m := env.engine.CurrentMetrics(); m.WeightKg != 85 {
		t.Errorf("engine weight: got %v, want 85", m.WeightKg)
	}
}

func TestUpdateWeightRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"too low", `{"weight_kg": 20}`},
		{"too high", `{"weight_kg": 300}`},
		{"negative", `{"weight_kg": -5}`},
		{"missing", `{}`},
		{"malformed", `weight=80`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			resp := env.do(t, http.MethodPut, "/settings/weight", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", resp.StatusCode)
			}
			if env.settings.Weight() != settings.DefaultWeightKg {
				t.Errorf("weight changed to %v", env.settings.Weight())
			}
		})
	}
}

func TestControlsNotRegisteredWithoutCollaborators(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, Controls{}).Handler())
	defer ts.Close()

	for _, path := range []string{"/walk/start", "/history.json", "/settings/weight"} {
		resp, err := http.Post(ts.URL+path, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != 404 {
			t.Errorf("%s: got %d, want 404", path, resp.StatusCode)
		}
	}
}
