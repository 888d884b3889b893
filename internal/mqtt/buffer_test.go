package mqtt

import (
	"io"
	"log"
	"testing"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10, quietLogger())
	if got := rb.drain(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	rb := newRingBuffer(0, quietLogger())
	if len(rb.items) != DefaultBufferSize {
		t.Errorf("capacity = %d, want %d", len(rb.items), DefaultBufferSize)
	}
}

func TestRingBufferOrder(t *testing.T) {
	rb := newRingBuffer(10, quietLogger())
	for i := 0; i < 5; i++ {
		rb.push(pending{topic: "t", payload: []byte{byte(i)}})
	}

	got := rb.drain()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i, msg := range got {
		if msg.payload[0] != byte(i) {
			t.Errorf("item %d: payload %d", i, msg.payload[0])
		}
	}
	if rb.drain() != nil {
		t.Error("second drain should be empty")
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
		first    byte
		dropped  int
	}{
		{"exactly full", 5, 5, 0, 0},
		{"one over", 5, 6, 1, 1},
		{"wrapped twice", 3, 8, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := newRingBuffer(tt.capacity, quietLogger())
			for i := 0; i < tt.pushed; i++ {
				rb.push(pending{payload: []byte{byte(i)}})
			}
			if rb.dropped != tt.dropped {
				t.Errorf("dropped = %d, want %d", rb.dropped, tt.dropped)
			}
			got := rb.drain()
			if len(got) != tt.capacity {
				t.Fatalf("len = %d, want %d", len(got), tt.capacity)
			}
			for i, msg := range got {
				if want := tt.first + byte(i); msg.payload[0] != want {
					t.Errorf("item %d = %d, want %d", i, msg.payload[0], want)
				}
			}
		})
	}
}

func TestRingBufferReuseAfterDrain(t *testing.T) {
	rb := newRingBuffer(4, quietLogger())
	for i := 0; i < 3; i++ {
		rb.push(pending{payload: []byte{byte(i)}})
	}
	rb.drain()

	for i := 10; i < 14; i++ {
		rb.push(pending{payload: []byte{byte(i)}})
	}
	if rb.len() != 4 {
		t.Fatalf("len = %d, want 4", rb.len())
	}
	for i, msg := range rb.drain() {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("item %d = %d, want %d", i, msg.payload[0], want)
		}
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(2, quietLogger())
	rb.push(pending{topic: "walk/test", payload: []byte(`{"a":1}`), qos: 1, retained: true})

	got := rb.drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != "walk/test" || string(got[0].payload) != `{"a":1}` || got[0].qos != 1 || !got[0].retained {
		t.Errorf("fields not preserved: %+v", got[0])
	}
}
