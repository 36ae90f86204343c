package relay

import (
	"sync"

	"github.com/interviewdesk/relay/internal/domain"
)

// Attachment is the scoped handle a transport holds for one live
// participant. Leave must be called on every exit path; it is safe to call
// from multiple disconnect listeners, only the first has any effect.
type Attachment struct {
	reg         *Registry
	roomID      domain.RoomID
	participant domain.Participant
	sub         *subscription
	once        sync.Once

	// Snapshot is the room state at attach time; the Events channel carries
	// everything published after it, with no gap and no duplicate.
	Snapshot Snapshot
	// Peers are the participants that were already present, so the adapter
	// can tell a first arrival from a joined pair.
	Peers []domain.Participant
}

func (a *Attachment) RoomID() domain.RoomID { return a.roomID }

func (a *Attachment) Participant() domain.Participant { return a.participant }

// Events yields this room's fan-out events in publish order. The channel is
// closed when the attachment leaves, the room is deleted, or the
// backpressure policy kicks this subscriber.
func (a *Attachment) Events() <-chan Event { return a.sub.ch }

// Leave removes the participant, publishes exactly one participant-left,
// and garbage-collects the room if it became empty.
func (a *Attachment) Leave() {
	a.once.Do(func() {
		a.reg.detach(a.roomID, a.participant.ConnID)
	})
}

// Observation is the passive counterpart of Attachment used by the fallback
// stream: same snapshot-then-events contract, no participant bookkeeping.
type Observation struct {
	reg    *Registry
	roomID domain.RoomID
	connID domain.ConnID
	sub    *subscription
	once   sync.Once

	Snapshot Snapshot
}

func (o *Observation) Events() <-chan Event { return o.sub.ch }

func (o *Observation) Close() {
	o.once.Do(func() {
		o.reg.unobserve(o.roomID, o.connID)
	})
}
