// Command walk-tracker tracks walks from an MQTT or GPX position source,
// records them to history, and publishes walk events to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/walk-tracker/internal/config"
	"github.com/sweeney/walk-tracker/internal/export"
	"github.com/sweeney/walk-tracker/internal/gpio"
	"github.com/sweeney/walk-tracker/internal/history"
	"github.com/sweeney/walk-tracker/internal/kv"
	"github.com/sweeney/walk-tracker/internal/logic"
	"github.com/sweeney/walk-tracker/internal/mqtt"
	"github.com/sweeney/walk-tracker/internal/observability"
	"github.com/sweeney/walk-tracker/internal/position"
	"github.com/sweeney/walk-tracker/internal/settings"
	"github.com/sweeney/walk-tracker/internal/status"
	"github.com/sweeney/walk-tracker/internal/walk"
	"github.com/sweeney/walk-tracker/internal/web"
)

func main() {
	configFile := flag.String("config", "", "Config file (env WALK_* overrides it)")
	printHistory := flag.Bool("print-history", false, "Print recorded walks and exit")
	exportLast := flag.Bool("export-last", false, "Export the most recent walk as GPX and exit")

	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, *printHistory, *exportLast); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (kv.Store, string, error) {
	client := kv.Connect(cfg.RedisAddr, cfg.RedisPassword)
	if client == nil {
		log.Printf("no REDIS_ADDR, history and settings will not survive a restart")
		return kv.NewMemory(), "memory", nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, "", fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return kv.NewRedis(client, cfg.RedisPrefix), "redis", nil
}

func openSource(cfg config.Config) (position.Source, string, func(), error) {
	if cfg.ReplayFile != "" {
		src, err := position.LoadReplayFile(cfg.ReplayFile, cfg.ReplayInterval)
		if err != nil {
			return nil, "", nil, err
		}
		log.Printf("replaying %d points from %s", src.Len(), cfg.ReplayFile)
		return src, "replay", func() {}, nil
	}
	src, err := position.NewMQTTSource(position.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: clientID(cfg.MQTTClientID, "position"),
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topic:    cfg.PositionTopic,
	})
	if err != nil {
		return nil, "", nil, fmt.Errorf("position source: %w", err)
	}
	return src, "mqtt", func() { src.Close() }, nil
}

// clientID derives a per-connection MQTT client ID; the broker drops an
// older session when a second one connects with the same ID.
func clientID(base, role string) string {
	return fmt.Sprintf("%s-%s-%s", base, role, uuid.NewString()[:8])
}

func run(cfg config.Config, printHistory, exportLast bool) error {
	ctx := context.Background()

	store, storage, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	hist := history.New(store)
	hist.Load(ctx)
	prefs := settings.New(store)
	weight := prefs.Load(ctx)

	dir := cfg.ExportDir
	if dir == "" {
		dir = export.DefaultDir()
	}
	exporter := export.New(export.NewDirSink(dir))

	if printHistory {
		return writeHistory(os.Stdout, hist.All())
	}
	if exportLast {
		location, err := exportLastWalk(hist, exporter)
		if err != nil {
			return err
		}
		fmt.Println(location)
		return nil
	}

	source, sourceName, closeSource, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	publisher, err := mqtt.NewRealPublisher(mqtt.Config{
		Broker:   cfg.MQTTBroker,
		ClientID: clientID(cfg.MQTTClientID, "events"),
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topic:    cfg.EventTopic,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	engine := walk.New(source, hist,
		walk.WithWeight(weight),
		walk.WithMinDistance(cfg.MinDistanceM),
		walk.WithAccuracy(cfg.PositionAccuracy()))
	prefs.OnChange(engine.SetWeight)

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:            cfg.MQTTBroker,
		HTTPAddr:          cfg.HTTPAddr,
		PositionSource:    sourceName,
		Storage:           storage,
		PublishIntervalMs: cfg.PublishInterval.Milliseconds(),
		ButtonPin:         cfg.ButtonPin,
		MinDistanceM:      cfg.MinDistanceM,
	})
	tracker.SetWeight(weight)
	tracker.SetHistoryCount(hist.Len())
	tracker.SetMQTTConnected(publisher.IsConnected())
	prefs.OnChange(tracker.SetWeight)

	events := make(chan walk.Event, 16)
	engine.Observe(observer(tracker, events))

	startup := mqtt.SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	srv := web.New(cfg.HTTPAddr, tracker, web.Controls{
		Walker:   engine,
		History:  hist,
		Settings: prefs,
		Exporter: exporter,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
	defer srv.Shutdown(context.Background())
	log.Printf("http server listening on %s", cfg.HTTPAddr)

	var button gpio.Reader
	var buttonTick <-chan time.Time
	if cfg.ButtonPin > 0 {
		reader, err := gpio.NewRealReader(cfg.ButtonPin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer reader.Close()
		button = reader
		ticker := time.NewTicker(cfg.ButtonPoll)
		defer ticker.Stop()
		buttonTick = ticker.C
	}

	var progressTick <-chan time.Time
	if cfg.PublishInterval > 0 {
		ticker := time.NewTicker(cfg.PublishInterval)
		defer ticker.Stop()
		progressTick = ticker.C
	}

	log.Printf("started: source=%s storage=%s weight=%.1fkg broker=%s", sourceName, storage, weight, cfg.MQTTBroker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		walker:       engine,
		historyLen:   hist.Len,
		button:       button,
		debouncer:    logic.NewDebouncer(cfg.ButtonDebounce),
		publisher:    publisher,
		mqttStatus:   publisher,
		tracker:      tracker,
		now:          time.Now,
		buttonTick:   buttonTick,
		progressTick: progressTick,
		events:       events,
		sig:          sigCh,
	})
}

// observer feeds every engine event to metrics and the status tracker, and
// forwards lifecycle events to the run loop. It never blocks: the engine
// calls it synchronously, sometimes from the run loop itself.
func observer(tracker *status.Tracker, events chan<- walk.Event) func(walk.Event) {
	return func(ev walk.Event) {
		observability.RecordEvent(ev)
		tracker.UpdateWalk(ev.Metrics)
		if ev.Type != walk.EventStarted && ev.Type != walk.EventStopped {
			return
		}
		select {
		case events <- ev:
		default:
			log.Printf("event queue full, dropped %s event", ev.Type)
		}
	}
}

type loopDeps struct {
	walker       web.Walker
	historyLen   func() int
	button       gpio.Reader // nil when no button is wired
	debouncer    *logic.Debouncer
	publisher    mqtt.Publisher
	mqttStatus   mqtt.ConnectionStatus
	tracker      *status.Tracker
	now          func() time.Time
	buttonTick   <-chan time.Time
	progressTick <-chan time.Time
	events       <-chan walk.Event
	sig          <-chan os.Signal
}

func runLoop(d loopDeps) error {
	ctx := context.Background()

	for {
		select {
		case s := <-d.sig:
			log.Printf("received %v, shutting down", s)
			d.drainEvents("")
			if d.walker.CurrentMetrics().Tracking() {
				if _, err := d.walker.Stop(ctx); err != nil {
					log.Printf("stop on shutdown: %v", err)
				}
			}
			d.drainEvents("SHUTDOWN")

			event := mqtt.SystemEvent{
				Timestamp: d.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName(s),
				Retained:  true,
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case t := <-d.buttonTick:
			pressed, err := d.button.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}
			if d.debouncer.Process(logic.ButtonInput{Pressed: pressed, Time: t}) {
				d.toggle(ctx)
			}

		case t := <-d.progressTick:
			d.refreshConnection()
			m := d.walker.CurrentMetrics()
			if !m.Tracking() {
				continue
			}
			d.publish(walkEvent(mqtt.WalkProgress, t, m))

		case ev := <-d.events:
			d.handleEvent(ev, "")
		}
	}
}

// toggle starts a walk when idle and stops it when tracking.
func (d loopDeps) toggle(ctx context.Context) {
	if d.walker.CurrentMetrics().Tracking() {
		log.Printf("button: stopping walk")
		if _, err := d.walker.Stop(ctx); err != nil {
			log.Printf("stop walk: %v", err)
		}
		return
	}
	log.Printf("button: starting walk")
	if err := d.walker.Start(ctx); err != nil {
		log.Printf("start walk: %v", err)
		d.tracker.SetLastError(err)
	}
}

func (d loopDeps) drainEvents(reason string) {
	for {
		select {
		case ev := <-d.events:
			d.handleEvent(ev, reason)
		default:
			return
		}
	}
}

func (d loopDeps) handleEvent(ev walk.Event, reason string) {
	d.refreshConnection()
	switch ev.Type {
	case walk.EventStarted:
		d.tracker.SetLastError(nil)
		d.publish(walkEvent(mqtt.WalkStarted, ev.Time, ev.Metrics))

	case walk.EventStopped:
		d.tracker.SetHistoryCount(d.historyLen())
		if ev.Err != nil {
			d.tracker.SetLastError(ev.Err)
			reason = ev.Err.Error()
		}
		e := walkEvent(mqtt.WalkStopped, ev.Time, ev.Metrics)
		e.Recorded = ev.Session != nil
		e.Reason = reason
		d.publish(e)
	}
}

func (d loopDeps) publish(e mqtt.WalkEvent) {
	log.Printf("event: %s distance=%.1fm duration=%ds", e.Type, e.DistanceMeters, e.DurationSeconds)
	if err := d.publisher.PublishWalk(e); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

func (d loopDeps) refreshConnection() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func walkEvent(t mqtt.WalkEventType, ts time.Time, m walk.Metrics) mqtt.WalkEvent {
	e := mqtt.NewWalkEvent(t, ts)
	e.DistanceMeters = m.DistanceMeters
	e.EnergyKcal = m.EnergyKcal
	e.DurationSeconds = m.DurationSeconds
	e.Points = m.PointCount()
	return e
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func writeHistory(w io.Writer, sessions []history.WalkSession) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "no walks recorded")
		return err
	}
	for i, s := range sessions {
		_, err := fmt.Fprintf(w, "%3d  %8.2f km  %6.0f kcal  %s  %d points\n",
			i, s.DistanceMeters/1000, s.EnergyKcal, time.Duration(s.DurationSeconds)*time.Second, s.PointCount())
		if err != nil {
			return err
		}
	}
	return nil
}

func exportLastWalk(hist *history.Store, exporter *export.Exporter) (string, error) {
	last, ok := hist.Last()
	if !ok {
		return "", errors.New("no walks recorded")
	}
	location, err := exporter.Export(last.Path)
	observability.RecordExport(err)
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return location, nil
}
