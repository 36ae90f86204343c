package relay

import (
	"sync"

	"github.com/interviewdesk/relay/internal/domain"
)

// subscription is one listener on a room's fan-out channel. Events are
// buffered so a publisher is never blocked by a consumer.
type subscription struct {
	id domain.ConnID
	ch chan Event

	mu     sync.Mutex
	closed bool
}

func newSubscription(id domain.ConnID, buf int) *subscription {
	return &subscription{id: id, ch: make(chan Event, buf)}
}

// trySend delivers without blocking. Returns false when the buffer is full.
func (s *subscription) trySend(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *subscription) dropOldest() {
	select {
	case <-s.ch:
	default:
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

type PublishResult struct {
	Delivered int
	Dropped   []domain.ConnID
	Kicked    []domain.ConnID
}
