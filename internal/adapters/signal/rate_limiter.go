package signal

import (
	"sync"
	"time"

	"github.com/interviewdesk/relay/internal/domain"
)

// MessageRateLimiter is a sliding-window flood guard keyed by user. It
// bounds chat throughput so one participant cannot drown the room.
type MessageRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.UserID][]time.Time
	limit    int
	interval time.Duration
}

func NewMessageRateLimiter(limit int, interval time.Duration) *MessageRateLimiter {
	return &MessageRateLimiter{
		history:  make(map[domain.UserID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *MessageRateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[uid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[uid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[uid] = fresh
	return true
}
