package mqtt

import "log"

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 256

// pending is a serialized message waiting for the broker to come back.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a bounded FIFO of pending messages. When full, the oldest
// message is overwritten. Not safe for concurrent use.
type ringBuffer struct {
	logger  *log.Logger
	items   []pending
	next    int // write position
	size    int
	dropped int // total overwritten messages
	warned  bool
}

func newRingBuffer(capacity int, logger *log.Logger) *ringBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ringBuffer{logger: logger, items: make([]pending, capacity)}
}

func (r *ringBuffer) push(msg pending) {
	capacity := len(r.items)
	r.items[r.next] = msg
	r.next = (r.next + 1) % capacity
	if r.size < capacity {
		r.size++
		return
	}
	r.dropped++
	if !r.warned {
		r.logger.Printf("mqtt: offline buffer full (%d messages), dropping oldest", capacity)
		r.warned = true
	}
}

// drain removes and returns every pending message, oldest first.
func (r *ringBuffer) drain() []pending {
	if r.size == 0 {
		return nil
	}
	capacity := len(r.items)
	out := make([]pending, r.size)
	first := (r.next - r.size + capacity) % capacity
	for i := range out {
		out[i] = r.items[(first+i)%capacity]
		r.items[(first+i)%capacity] = pending{}
	}
	r.next = 0
	r.size = 0
	r.warned = false
	return out
}

func (r *ringBuffer) len() int {
	return r.size
}
