package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader(false, true, false)

	want := []bool{false, true, false, false}
	for i, w := range want {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("read %d = %v, want %v", i, got, w)
		}
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader()
	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader(true)
	f.ReadError = errors.New("simulated")
	if _, err := f.Read(); err == nil {
		t.Error("expected error")
	}
}

func TestFakeReaderPress(t *testing.T) {
	f := NewFakeReader(false)
	f.Read()
	f.Press(3)

	var pressed int
	for i := 0; i < 4; i++ {
		p, _ := f.Read()
		if p {
			pressed++
		}
	}
	if pressed != 3 {
		t.Errorf("pressed reads = %d, want 3", pressed)
	}
	if p, _ := f.Read(); p {
		t.Error("button should be released after the press")
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader(true, false)
	f.Read()
	f.Close()
	if !f.Closed {
		t.Error("should be closed")
	}

	f.Reset()
	if f.Closed {
		t.Error("reset should clear closed")
	}
	if p, _ := f.Read(); !p {
		t.Error("reset should rewind to the first sample")
	}
}

func TestReaderInterface(t *testing.T) {
	var _ Reader = (*FakeReader)(nil)
	var _ Reader = (*RealReader)(nil)
}

func TestFakeReaderQueueAfterExhausted(t *testing.T) {
	f := NewFakeReader(false)
	f.Read()
	f.Read()
	f.Queue(true, false)

	want := []bool{true, false, false}
	for i, w := range want {
		if got, _ := f.Read(); got != w {
			t.Errorf("read %d = %v, want %v", i, got, w)
		}
	}

	f.SetReadError(errors.New("line busy"))
	if _, err := f.Read(); err == nil {
		t.Error("expected error")
	}
	f.SetReadError(nil)
	if _, err := f.Read(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
