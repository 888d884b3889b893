// Package settings stores the user's body weight used by the calorie model.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/sweeney/walk-tracker/internal/kv"
)

// Key is the persistence key holding the weight.
const Key = "weight_kg"

// Weight bounds. Valid weights lie strictly between MinWeightKg and MaxWeightKg.
const (
	DefaultWeightKg = 70.0
	MinWeightKg     = 20.0
	MaxWeightKg     = 300.0
)

// ErrValidation is returned when a weight is outside the accepted range.
var ErrValidation = errors.New("settings: weight out of range")

// Valid reports whether kg is an accepted weight.
func Valid(kg float64) bool {
	return !math.IsNaN(kg) && kg > MinWeightKg && kg < MaxWeightKg
}

// Store holds the current weight and persists updates.
type Store struct {
	kv     kv.Store
	logger *log.Logger

	// writeMu orders updates so the stored weight, the current weight and
	// the last value seen by listeners always agree.
	writeMu sync.Mutex

	mu        sync.Mutex
	weight    float64
	listeners []func(float64)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for absorbed read failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store holding the default weight until Load is called.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, logger: log.Default(), weight: DefaultWeightKg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted weight. Absent, unreadable, or invalid values
// yield DefaultWeightKg. The loaded value becomes the current weight.
func (s *Store) Load(ctx context.Context) float64 {
	kg := DefaultWeightKg
	v, ok, err := s.kv.GetDouble(ctx, Key)
	switch {
	case err != nil:
		s.logger.Printf("settings: read failed, using default %.0f kg: %v", DefaultWeightKg, err)
	case !ok:
	case !Valid(v):
		s.logger.Printf("settings: stored weight %v invalid, using default %.0f kg", v, DefaultWeightKg)
	default:
		kg = v
	}

	s.mu.Lock()
	s.weight = kg
	s.mu.Unlock()
	return kg
}

// Update validates and persists kg, then notifies listeners.
// An invalid value fails with ErrValidation and the prior weight is kept.
// A write failure is returned and the prior weight is kept.
func (s *Store) Update(ctx context.Context, kg float64) error {
	if !Valid(kg) {
		return fmt.Errorf("%w: %v not in (%.0f, %.0f)", ErrValidation, kg, MinWeightKg, MaxWeightKg)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.kv.SetDouble(ctx, Key, kg); err != nil {
		return fmt.Errorf("settings: persist weight: %w", err)
	}

	s.mu.Lock()
	s.weight = kg
	listeners := append([]func(float64){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(kg)
	}
	return nil
}

// Weight returns the current weight.
func (s *Store) Weight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weight
}

// OnChange registers fn to be called with every successfully updated weight.
func (s *Store) OnChange(fn func(float64)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
