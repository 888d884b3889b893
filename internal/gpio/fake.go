package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted button levels.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted pressed values. Each Read consumes one;
	// once exhausted the last value repeats.
	Samples []bool

	index int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by Read.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...bool) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	if f.index >= len(f.Samples) {
		return f.Samples[len(f.Samples)-1], nil
	}
	pressed := f.Samples[f.index]
	f.index++
	return pressed, nil
}

// Queue appends scripted samples. Safe to call while another goroutine reads.
func (f *FakeReader) Queue(samples ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Samples = append(f.Samples, samples...)
}

// SetReadError sets or clears the error returned by Read.
func (f *FakeReader) SetReadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadError = err
}

// Press appends held-down samples followed by a release.
func (f *FakeReader) Press(held int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < held; i++ {
		f.Samples = append(f.Samples, true)
	}
	f.Samples = append(f.Samples, false)
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.Closed = false
}
