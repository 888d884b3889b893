package position

import "sync"

// stream is the Subscription used by the real sources. The update channel is
// never closed; consumers stop reading when they cancel.
type stream struct {
	ch       chan Update
	done     chan struct{}
	once     sync.Once
	onCancel func()
}

func newStream(buffer int, onCancel func()) *stream {
	return &stream{
		ch:       make(chan Update, buffer),
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

func (s *stream) Updates() <-chan Update {
	return s.ch
}

func (s *stream) Cancel() {
	s.once.Do(func() {
		close(s.done)
		if s.onCancel != nil {
			s.onCancel()
		}
	})
}

func (s *stream) canceled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// send delivers u, blocking while the buffer is full, unless the stream is
// cancelled first.
func (s *stream) send(u Update) bool {
	if s.canceled() {
		return false
	}
	select {
	case s.ch <- u:
		return true
	case <-s.done:
		return false
	}
}

// trySend delivers u without blocking, dropping it when the buffer is full.
func (s *stream) trySend(u Update) bool {
	if s.canceled() {
		return false
	}
	select {
	case s.ch <- u:
		return true
	default:
		return false
	}
}
