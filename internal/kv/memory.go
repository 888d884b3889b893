package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Memory is an in-process Store. It is used when no Redis address is
// configured and as a test double.
type Memory struct {
	mu     sync.Mutex
	values map[string]string

	// ReadErr, if set, is returned by every getter.
	ReadErr error

	// WriteErr, if set, is returned by every setter and nothing is stored.
	WriteErr error

	// Writes counts successful setter calls.
	Writes int
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

// GetString returns the string at key.
func (m *Memory) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", false, m.ReadErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

// SetString stores value at key.
func (m *Memory) SetString(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.values[key] = value
	m.Writes++
	return nil
}

// GetDouble parses the value at key as a float64.
func (m *Memory) GetDouble(ctx context.Context, key string) (float64, bool, error) {
	s, ok, err := m.GetString(ctx, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, true, nil
}

// SetDouble stores value at key.
func (m *Memory) SetDouble(ctx context.Context, key string, value float64) error {
	return m.SetString(ctx, key, strconv.FormatFloat(value, 'g', -1, 64))
}
