package position

import (
	"context"
	"sync"

	"github.com/sweeney/walk-tracker/internal/logic"
)

// FakeSource is a test double with a scripted current position and
// subscriptions driven by the test.
type FakeSource struct {
	mu sync.Mutex

	// Fix is returned by CurrentPosition.
	Fix logic.Coordinate

	// CurrentErr, if set, will be returned by CurrentPosition.
	CurrentErr error

	// SubscribeErr, if set, will be returned by Subscribe.
	SubscribeErr error

	subs    []*FakeSubscription
	options []Options
}

// NewFakeSource creates a FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// CurrentPosition returns Fix or CurrentErr.
func (f *FakeSource) CurrentPosition(context.Context) (logic.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CurrentErr != nil {
		return logic.Coordinate{}, f.CurrentErr
	}
	return f.Fix, nil
}

// Subscribe records the options and returns a new FakeSubscription.
func (f *FakeSource) Subscribe(_ context.Context, opts Options) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	sub := &FakeSubscription{ch: make(chan Update, 64)}
	f.subs = append(f.subs, sub)
	f.options = append(f.options, opts)
	return sub, nil
}

// Subscriptions returns every subscription created so far.
func (f *FakeSource) Subscriptions() []*FakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSubscription(nil), f.subs...)
}

// Last returns the most recent subscription, or nil.
func (f *FakeSource) Last() *FakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

// LastOptions returns the options of the most recent Subscribe call.
func (f *FakeSource) LastOptions() Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.options) == 0 {
		return Options{}
	}
	return f.options[len(f.options)-1]
}

// FakeSubscription is a subscription fed by the test through Send and Fail.
type FakeSubscription struct {
	ch chan Update

	mu       sync.Mutex
	canceled bool
}

// Updates returns the delivery channel.
func (s *FakeSubscription) Updates() <-chan Update {
	return s.ch
}

// Cancel marks the subscription cancelled. Later sends are dropped.
func (s *FakeSubscription) Cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
}

// Canceled reports whether Cancel was called.
func (s *FakeSubscription) Canceled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

// Send delivers a coordinate. It returns false if the subscription was cancelled.
func (s *FakeSubscription) Send(c logic.Coordinate) bool {
	return s.deliver(Update{Coord: c})
}

// Fail delivers a source error. It returns false if the subscription was cancelled.
func (s *FakeSubscription) Fail(err error) bool {
	return s.deliver(Update{Err: err})
}

func (s *FakeSubscription) deliver(u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled {
		return false
	}
	s.ch <- u
	return true
}
