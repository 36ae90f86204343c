package relay

import "github.com/interviewdesk/relay/internal/domain"

type BackpressureAction int

const (
	// DropOldest evicts the oldest buffered event to make room for the new
	// one. The subscriber loses history but stays attached.
	DropOldest BackpressureAction = iota
	// KickSubscriber closes the subscription; the owning transport observes
	// the closed channel and tears the connection down.
	KickSubscriber
)

// Policy decides what happens to a subscriber whose buffer is full at
// publish time. A slow consumer must never stall delivery to the rest of
// the room.
type Policy interface {
	OnBackpressure(roomID domain.RoomID, connID domain.ConnID) BackpressureAction
}

type DropOldestPolicy struct{}

func (DropOldestPolicy) OnBackpressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return DropOldest
}

type KickPolicy struct{}

func (KickPolicy) OnBackpressure(domain.RoomID, domain.ConnID) BackpressureAction {
	return KickSubscriber
}
