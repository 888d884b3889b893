// Package walk implements the tracking engine: it turns position samples and
// elapsed-time ticks into walk metrics and records finished walks.
//
// The engine owns a single mutex. Every mutation (sample, tick, weight change,
// start, stop) runs under it, so the metrics snapshot always reflects a fully
// applied update. Deliveries from a position subscription carry the epoch of
// the tracking period that created them; deliveries whose epoch no longer
// matches, or that arrive while idle, are dropped.
package walk

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/walk-tracker/internal/history"
	"github.com/sweeney/walk-tracker/internal/logic"
	"github.com/sweeney/walk-tracker/internal/position"
	"github.com/sweeney/walk-tracker/internal/settings"
)

const (
	// MinSessionDistanceMeters is the distance a walk must exceed to be recorded.
	MinSessionDistanceMeters = 10.0

	// DefaultMinDistanceMeters is the subscription movement threshold.
	DefaultMinDistanceMeters = 5.0

	// TickInterval is the elapsed-time resolution.
	TickInterval = time.Second
)

// Recorder stores finished walks.
type Recorder interface {
	Append(ctx context.Context, session history.WalkSession) error
}

// Engine is the tracking state machine.
type Engine struct {
	source    position.Source
	recorder  Recorder
	logger    *log.Logger
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	subOpts   position.Options

	// opMu serializes Start and Stop so that lifecycle transitions,
	// including subscription setup and teardown, never interleave.
	opMu sync.Mutex

	mu        sync.Mutex
	phase     Phase
	epoch     uint64
	acc       *logic.Accumulator
	weight    float64
	startedAt time.Time
	stoppedAt time.Time
	lastErr   error
	sub       position.Subscription
	ticker    Ticker
	quit      chan struct{}

	wg    sync.WaitGroup
	snap  atomic.Pointer[Metrics]
	stale atomic.Uint64

	// emitMu is acquired before mu is released, so observers receive
	// events in the order the changes were applied.
	emitMu    sync.Mutex
	obsMu     sync.Mutex
	observers []observer
	nextObs   int
}

type observer struct {
	id int
	fn func(Event)
}

// Option configures an Engine.
type Option func(*Engine)

// WithWeight sets the weight used for the first walk.
func WithWeight(kg float64) Option {
	return func(e *Engine) {
		e.weight = kg
	}
}

// WithMinDistance sets the movement threshold requested from the source.
func WithMinDistance(meters float64) Option {
	return func(e *Engine) {
		e.subOpts.MinDistanceMeters = meters
	}
}

// WithAccuracy sets the accuracy hint requested from the source.
func WithAccuracy(a position.Accuracy) Option {
	return func(e *Engine) {
		e.subOpts.Accuracy = a
	}
}

// WithTicker replaces the elapsed-time ticker factory.
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newTicker = fn
		}
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an idle engine. recorder may be nil, in which case finished
// walks are returned from Stop but not stored.
func New(source position.Source, recorder Recorder, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		recorder:  recorder,
		logger:    log.Default(),
		now:       time.Now,
		newTicker: NewTimeTicker,
		subOpts: position.Options{
			MinDistanceMeters: DefaultMinDistanceMeters,
			Accuracy:          position.AccuracyBest,
		},
		phase:  PhaseIdle,
		weight: settings.DefaultWeightKg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.acc = logic.NewAccumulator(e.weight)
	e.publishLocked()
	return e
}

// Start begins a tracking period. It is a no-op while already tracking.
// A subscription failure leaves the engine idle and is returned wrapped;
// check it with errors.Is against position.ErrPermissionDenied or
// position.ErrUnavailable.
func (e *Engine) Start(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.phase == PhaseTracking {
		e.mu.Unlock()
		return nil
	}
	opts := e.subOpts
	e.mu.Unlock()

	// The subscription outlives the caller's request; Stop cancels it.
	sub, err := e.source.Subscribe(context.WithoutCancel(ctx), opts)
	if err != nil {
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		return fmt.Errorf("walk: start: %w", err)
	}
	ticker := e.newTicker(TickInterval)
	quit := make(chan struct{})

	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	e.acc.Reset(e.weight)
	e.phase = PhaseTracking
	e.startedAt = e.now()
	e.stoppedAt = time.Time{}
	e.lastErr = nil
	e.sub = sub
	e.ticker = ticker
	e.quit = quit
	m := e.publishLocked()
	e.unlockAndEmit(Event{Type: EventStarted, Time: m.StartedAt, Metrics: m})

	e.logger.Printf("walk: started (epoch %d, weight %.1f kg)", epoch, m.WeightKg)
	e.wg.Add(2)
	go e.readPositions(epoch, sub, quit)
	go e.runTicks(epoch, ticker, quit)
	return nil
}

// Stop ends the tracking period. It is a no-op returning (nil, nil) while
// idle. The subscription is cancelled before the walk is evaluated. A walk
// longer than MinSessionDistanceMeters is recorded and returned; a
// persistence failure is returned alongside the session, which the
// recorder still holds in memory.
func (e *Engine) Stop(ctx context.Context) (*history.WalkSession, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.stop(ctx, nil)
}

// stop must be called with opMu held.
func (e *Engine) stop(ctx context.Context, cause error) (*history.WalkSession, error) {
	e.mu.Lock()
	if e.phase != PhaseTracking {
		e.mu.Unlock()
		return nil, nil
	}
	e.phase = PhaseIdle
	e.stoppedAt = e.now()
	if cause != nil {
		e.lastErr = cause
	}
	sub, ticker, quit := e.sub, e.ticker, e.quit
	e.sub, e.ticker, e.quit = nil, nil, nil
	totals := e.acc.Totals()
	m := e.publishLocked()
	e.mu.Unlock()

	close(quit)
	sub.Cancel()
	ticker.Stop()
	e.wg.Wait()

	var session *history.WalkSession
	var persistErr error
	if recordable(totals.DistanceMeters) {
		session = &history.WalkSession{
			DistanceMeters:  totals.DistanceMeters,
			EnergyKcal:      totals.EnergyKcal,
			DurationSeconds: totals.DurationSeconds,
			Path:            totals.Path,
		}
		if e.recorder != nil {
			// The write must complete even if the caller has gone away.
			if persistErr = e.recorder.Append(context.WithoutCancel(ctx), *session); persistErr != nil {
				e.logger.Printf("walk: recording session: %v", persistErr)
			}
		}
		e.logger.Printf("walk: stopped, recorded %.1f m in %d s", totals.DistanceMeters, totals.DurationSeconds)
	} else {
		e.logger.Printf("walk: stopped, discarded %.1f m walk", totals.DistanceMeters)
	}

	e.emit(Event{
		Type:       EventStopped,
		Time:       m.StoppedAt,
		Metrics:    m,
		Session:    session,
		Err:        cause,
		PersistErr: persistErr,
	})
	return session, persistErr
}

// recordable reports whether a walk of the given distance is kept.
func recordable(meters float64) bool {
	return meters > MinSessionDistanceMeters
}

// stopFromSource stops the period identified by epoch after a terminal
// source error. A newer period is left alone.
func (e *Engine) stopFromSource(epoch uint64, err error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	current := e.phase == PhaseTracking && e.epoch == epoch
	e.mu.Unlock()
	if !current {
		return
	}
	e.logger.Printf("walk: position source failed, stopping: %v", err)
	_, _ = e.stop(context.Background(), err)
}

func (e *Engine) readPositions(epoch uint64, sub position.Subscription, quit <-chan struct{}) {
	defer e.wg.Done()
	updates := sub.Updates()
	for {
		select {
		case <-quit:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Err != nil {
				// stop waits for this goroutine, so it must run elsewhere.
				go e.stopFromSource(epoch, u.Err)
				return
			}
			e.deliver(epoch, u.Coord)
		}
	}
}

func (e *Engine) runTicks(epoch uint64, ticker Ticker, quit <-chan struct{}) {
	defer e.wg.Done()
	c := ticker.C()
	for {
		select {
		case <-quit:
			return
		case <-c:
			e.tick(epoch)
		}
	}
}

// deliver applies a sample tagged with epoch. Returns false when dropped.
func (e *Engine) deliver(epoch uint64, c logic.Coordinate) bool {
	e.mu.Lock()
	if e.phase != PhaseTracking || epoch != e.epoch {
		e.mu.Unlock()
		e.stale.Add(1)
		return false
	}
	e.acc.AddSample(c)
	m := e.publishLocked()
	e.unlockAndEmit(Event{Type: EventSample, Time: e.now(), Metrics: m})
	return true
}

func (e *Engine) tick(epoch uint64) bool {
	e.mu.Lock()
	if e.phase != PhaseTracking || epoch != e.epoch {
		e.mu.Unlock()
		return false
	}
	e.acc.Tick()
	m := e.publishLocked()
	e.unlockAndEmit(Event{Type: EventTick, Time: e.now(), Metrics: m})
	return true
}

func (e *Engine) currentEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

// OnPositionSample applies c to the current tracking period.
// Ignored while idle.
func (e *Engine) OnPositionSample(c logic.Coordinate) {
	e.deliver(e.currentEpoch(), c)
}

// OnTick advances the elapsed time by one second. Ignored while idle.
func (e *Engine) OnTick() {
	e.tick(e.currentEpoch())
}

// SetWeight changes the weight. While tracking, energy is immediately
// re-priced from the cumulative distance; while idle, the weight applies
// from the next start.
func (e *Engine) SetWeight(kg float64) {
	e.mu.Lock()
	e.weight = kg
	if e.phase != PhaseTracking {
		e.mu.Unlock()
		return
	}
	e.acc.SetWeight(kg)
	m := e.publishLocked()
	e.unlockAndEmit(Event{Type: EventWeight, Time: e.now(), Metrics: m})
}

// CurrentMetrics returns the latest snapshot without waiting on updates in
// flight. After Stop it keeps returning the final values of the last walk
// until the next Start.
func (e *Engine) CurrentMetrics() Metrics {
	m := *e.snap.Load()
	m.Path = append([]logic.Coordinate(nil), m.Path...)
	return m
}

// Locate returns a single position fix from the source.
func (e *Engine) Locate(ctx context.Context) (logic.Coordinate, error) {
	return e.source.CurrentPosition(ctx)
}

// LastError returns the error that ended or prevented the last walk.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// StaleSamples returns how many samples were dropped because they did not
// belong to the current tracking period.
func (e *Engine) StaleSamples() uint64 {
	return e.stale.Load()
}

// Observe registers fn to receive every event. Events arrive one at a time,
// in the order the changes were applied. fn runs synchronously on the
// goroutine that applied the change and holds up the next change until it
// returns, so it must not block; it may read CurrentMetrics and StaleSamples
// but must not call any other Engine method. The returned function removes
// the observer.
func (e *Engine) Observe(fn func(Event)) (cancel func()) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.nextObs++
	id := e.nextObs
	e.observers = append(e.observers, observer{id: id, fn: fn})
	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

// emit delivers ev to the observers. Used where mu is not held.
func (e *Engine) emit(ev Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.notify(ev)
}

// unlockAndEmit releases mu and delivers ev. Caller holds mu.
func (e *Engine) unlockAndEmit(ev Event) {
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()
	e.notify(ev)
}

func (e *Engine) notify(ev Event) {
	e.obsMu.Lock()
	observers := append([]observer(nil), e.observers...)
	e.obsMu.Unlock()
	for _, o := range observers {
		o.fn(ev)
	}
}

// publishLocked builds the snapshot from the accumulator and stores it.
// Caller holds mu.
func (e *Engine) publishLocked() Metrics {
	t := e.acc.Totals()
	m := Metrics{
		Phase:           e.phase,
		DistanceMeters:  t.DistanceMeters,
		EnergyKcal:      t.EnergyKcal,
		DurationSeconds: t.DurationSeconds,
		WeightKg:        t.WeightKg,
		Path:            t.Path,
		Epoch:           e.epoch,
		StartedAt:       e.startedAt,
		StoppedAt:       e.stoppedAt,
	}
	stored := m
	e.snap.Store(&stored)
	return m
}
