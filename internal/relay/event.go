package relay

import (
	"time"

	"github.com/interviewdesk/relay/internal/domain"
)

type EventType string

const (
	EventConnectionConfirmed EventType = "connection-confirmed"
	EventUserJoined          EventType = "user-joined"
	EventOffer               EventType = "offer"
	EventAnswer              EventType = "answer"
	EventICECandidate        EventType = "ice-candidate"
	EventChatMessage         EventType = "chat-message"
	EventCodeUpdate          EventType = "code-update"
	EventParticipantLeft     EventType = "participant-left"
	EventRoomState           EventType = "room-state"
)

// Event is the envelope broadcast on a room's fan-out channel. The relay
// wraps payloads with sender identity but never rewrites their content.
type Event struct {
	Type EventType     `json:"type"`
	From domain.UserID `json:"from,omitempty"`
	Role domain.Role   `json:"role,omitempty"`

	// Presence events (connection-confirmed, user-joined, participant-left).
	RoomID domain.RoomID `json:"roomId,omitempty"`
	UserID domain.UserID `json:"userId,omitempty"`

	Offer     *domain.SessionDescription `json:"offer,omitempty"`
	Answer    *domain.SessionDescription `json:"answer,omitempty"`
	Candidate *domain.ICECandidate       `json:"candidate,omitempty"`

	Message  string `json:"message,omitempty"`
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`

	Timestamp time.Time `json:"timestamp,omitzero"`

	// room-state bootstrap for listeners attaching after artifacts were
	// recorded (fallback stream only).
	Offers        []domain.SessionDescription `json:"offers,omitempty"`
	Answers       []domain.SessionDescription `json:"answers,omitempty"`
	ICECandidates []domain.ICECandidate       `json:"iceCandidates,omitempty"`

	// origin is skipped at delivery unless echo is set. Signaling events
	// exclude their sender; chat and code updates are shared collaborative
	// state and go back to everyone, sender included.
	origin domain.ConnID
	echo   bool
}

// ConnectionConfirmedEvent is sent directly to the attaching client, never
// through the fan-out channel.
func ConnectionConfirmedEvent(roomID domain.RoomID, p domain.Participant) Event {
	return Event{
		Type:      EventConnectionConfirmed,
		RoomID:    roomID,
		UserID:    p.UserID,
		Role:      p.Role,
		Timestamp: time.Now(),
	}
}

// RoomStateEvent is the catch-up bootstrap emitted first on a fallback
// event stream.
func RoomStateEvent(s Snapshot) Event {
	return Event{
		Type:          EventRoomState,
		Offers:        s.Offers,
		Answers:       s.Answers,
		ICECandidates: s.ICECandidates,
	}
}

// UserJoinedEvent announces a participant's presence. Adapters also send it
// directly to a late arrival for each peer already in the room, so both
// sides of a pairing learn about each other.
func UserJoinedEvent(p domain.Participant) Event {
	return Event{
		Type:      EventUserJoined,
		UserID:    p.UserID,
		Role:      p.Role,
		Timestamp: time.Now(),
	}
}

func userJoinedEvent(p domain.Participant) Event {
	ev := UserJoinedEvent(p)
	ev.origin = p.ConnID
	return ev
}

// participantLeft carries the userId, not the connection id: peers reconcile
// UI state by user identity.
func participantLeftEvent(p domain.Participant) Event {
	return Event{
		Type:      EventParticipantLeft,
		UserID:    p.UserID,
		Timestamp: time.Now(),
		origin:    p.ConnID,
	}
}
