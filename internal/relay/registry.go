package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/domain"
)

const (
	defaultSubscriberBuffer = 32
	defaultMaxICECandidates = 64
)

// Registry is the single owner of all room state. Both transport adapters
// are thin translators calling into it; it is constructed once at process
// start and injected, never reached through a package-level variable.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room

	policy Policy
	subBuf int
	maxICE int
}

type Options struct {
	// SubscriberBuffer bounds the per-listener event buffer.
	SubscriberBuffer int
	// MaxICECandidates caps the pending candidate ring per room.
	MaxICECandidates int
	// Policy handles subscribers whose buffer is full at publish time.
	Policy Policy
}

func NewRegistry(opts Options) *Registry {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = defaultSubscriberBuffer
	}
	if opts.MaxICECandidates <= 0 {
		opts.MaxICECandidates = defaultMaxICECandidates
	}
	if opts.Policy == nil {
		opts.Policy = DropOldestPolicy{}
	}
	return &Registry{
		rooms:  make(map[domain.RoomID]*room),
		policy: opts.Policy,
		subBuf: opts.SubscriberBuffer,
		maxICE: opts.MaxICECandidates,
	}
}

// room holds participants, pending handshake artifacts and the subscriber
// set. Its mutex serializes every mutation and publish for the room; the
// fan-out channel lives inside the entry so snapshot+subscribe is atomic.
type room struct {
	id domain.RoomID

	mu           sync.Mutex
	closed       bool
	participants map[domain.ConnID]domain.Participant
	offer        *domain.SessionDescription
	answer       *domain.SessionDescription
	candidates   []domain.ICECandidate
	subs         map[domain.ConnID]*subscription
}

// Snapshot is the recorded room state handed to a late-attaching listener.
// Only the latest offer and answer are retained, so the slices carry at
// most one element each; candidates are capped by MaxICECandidates.
type Snapshot struct {
	Offers        []domain.SessionDescription `json:"offers"`
	Answers       []domain.SessionDescription `json:"answers"`
	ICECandidates []domain.ICECandidate       `json:"iceCandidates"`
	Participants  []domain.Participant        `json:"participants"`
}

// getOrCreate never errors: unknown rooms are created on demand.
func (r *Registry) getOrCreate(id domain.RoomID) *room {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return rm
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok = r.rooms[id]; ok {
		return rm
	}
	rm = &room{
		id:           id,
		participants: make(map[domain.ConnID]domain.Participant),
		subs:         make(map[domain.ConnID]*subscription),
	}
	r.rooms[id] = rm
	log.Debug().Str("module", "relay.registry").Str("room", string(id)).Msg("room created")
	return rm
}

// lockLive returns the room locked, retrying if it was deleted between the
// map lookup and acquiring its mutex.
func (r *Registry) lockLive(id domain.RoomID) *room {
	for {
		rm := r.getOrCreate(id)
		rm.mu.Lock()
		if !rm.closed {
			return rm
		}
		rm.mu.Unlock()
	}
}

// Has reports whether the room currently exists in the registry.
func (r *Registry) Has(id domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id]
	return ok
}

// Participants returns the current participant list of a room; empty when
// the room does not exist.
func (r *Registry) Participants(id domain.RoomID) []domain.Participant {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.participantsLocked()
}

// Attach registers a participant and subscribes it to the room's fan-out
// channel in one step, so the returned snapshot and the event stream have
// no gap and no overlap. Peers who were already present receive a
// user-joined event; the new arrival does not see its own join.
func (r *Registry) Attach(a domain.Attach) *Attachment {
	connID := domain.ConnID(uuid.NewString())
	p := domain.Participant{UserID: a.UserID, Role: a.Role, ConnID: connID}

	rm := r.lockLive(a.RoomID)
	peers := rm.participantsLocked()
	rm.participants[connID] = p
	sub := newSubscription(connID, r.subBuf)
	rm.subs[connID] = sub
	snap := rm.snapshotLocked()
	rm.publishLocked(r, userJoinedEvent(p))
	rm.mu.Unlock()

	log.Info().Str("module", "relay.registry").
		Str("room", string(a.RoomID)).
		Str("user", string(a.UserID)).
		Str("role", string(a.Role)).
		Str("conn", string(connID)).
		Int("peers", len(peers)).
		Msg("participant attached")

	return &Attachment{
		reg:         r,
		roomID:      a.RoomID,
		participant: p,
		sub:         sub,
		Snapshot:    snap,
		Peers:       peers,
	}
}

// Observe subscribes a passive listener: it receives the snapshot and all
// subsequent room events but is not registered as a participant, so it
// produces no user-joined or participant-left events. This is the
// fallback-stream semantic.
func (r *Registry) Observe(id domain.RoomID) *Observation {
	connID := domain.ConnID(uuid.NewString())

	rm := r.lockLive(id)
	sub := newSubscription(connID, r.subBuf)
	rm.subs[connID] = sub
	snap := rm.snapshotLocked()
	rm.mu.Unlock()

	log.Debug().Str("module", "relay.registry").Str("room", string(id)).Str("conn", string(connID)).Msg("observer attached")

	return &Observation{reg: r, roomID: id, connID: connID, sub: sub, Snapshot: snap}
}

// RelayOffer records the offer (superseding any previous negotiation) and
// fans it out, excluding the sender.
func (r *Registry) RelayOffer(id domain.RoomID, from domain.Participant, sd domain.SessionDescription) {
	rm := r.lockLive(id)
	rm.offer = &sd
	rm.answer = nil
	rm.publishLocked(r, Event{Type: EventOffer, From: from.UserID, Role: from.Role, Offer: &sd, origin: from.ConnID})
	rm.mu.Unlock()
}

func (r *Registry) RelayAnswer(id domain.RoomID, from domain.Participant, sd domain.SessionDescription) {
	rm := r.lockLive(id)
	rm.answer = &sd
	rm.publishLocked(r, Event{Type: EventAnswer, From: from.UserID, Role: from.Role, Answer: &sd, origin: from.ConnID})
	rm.mu.Unlock()
}

// RelayCandidate appends to the bounded candidate ring, dropping the oldest
// entry once the cap is reached, and fans the candidate out.
func (r *Registry) RelayCandidate(id domain.RoomID, from domain.Participant, c domain.ICECandidate) {
	rm := r.lockLive(id)
	rm.candidates = append(rm.candidates, c)
	if len(rm.candidates) > r.maxICE {
		rm.candidates = rm.candidates[len(rm.candidates)-r.maxICE:]
	}
	rm.publishLocked(r, Event{Type: EventICECandidate, From: from.UserID, Role: from.Role, Candidate: &c, origin: from.ConnID})
	rm.mu.Unlock()
}

// RelayChat broadcasts to everyone in the room, sender included: chat is
// shared collaborative state, not peer-to-peer negotiation.
func (r *Registry) RelayChat(id domain.RoomID, from domain.Participant, message string) {
	rm := r.lockLive(id)
	rm.publishLocked(r, Event{
		Type: EventChatMessage, From: from.UserID, Role: from.Role,
		Message: message, Timestamp: time.Now(), origin: from.ConnID, echo: true,
	})
	rm.mu.Unlock()
}

// RelayCode broadcasts an editor update to everyone, sender included.
func (r *Registry) RelayCode(id domain.RoomID, from domain.Participant, code, language string) {
	rm := r.lockLive(id)
	rm.publishLocked(r, Event{
		Type: EventCodeUpdate, From: from.UserID, Role: from.Role,
		Code: code, Language: language, origin: from.ConnID, echo: true,
	})
	rm.mu.Unlock()
}

// detach removes a participant by connection identity. Removing an absent
// connection is a silent no-op, so duplicate disconnect signals never emit
// a second departure event. Emptied rooms are deleted entirely, discarding
// pending artifacts and ending any remaining observer streams.
func (r *Registry) detach(id domain.RoomID, connID domain.ConnID) {
	r.mu.Lock()
	rm, ok := r.rooms[id]
	if !ok {
		r.mu.Unlock()
		return
	}

	rm.mu.Lock()
	p, present := rm.participants[connID]
	delete(rm.participants, connID)
	if sub, ok := rm.subs[connID]; ok {
		sub.close()
		delete(rm.subs, connID)
	}
	if present {
		rm.publishLocked(r, participantLeftEvent(p))
		log.Info().Str("module", "relay.registry").
			Str("room", string(id)).
			Str("user", string(p.UserID)).
			Str("conn", string(connID)).
			Msg("participant detached")
	}
	if present && len(rm.participants) == 0 {
		rm.closed = true
		rm.offer, rm.answer, rm.candidates = nil, nil, nil
		for sid, sub := range rm.subs {
			sub.close()
			delete(rm.subs, sid)
		}
		delete(r.rooms, id)
		log.Info().Str("module", "relay.registry").Str("room", string(id)).Msg("room deleted")
	}
	rm.mu.Unlock()
	r.mu.Unlock()
}

// unobserve releases an observer subscription without touching participants.
func (r *Registry) unobserve(id domain.RoomID, connID domain.ConnID) {
	r.mu.RLock()
	rm, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	rm.mu.Lock()
	if sub, ok := rm.subs[connID]; ok {
		sub.close()
		delete(rm.subs, connID)
	}
	rm.mu.Unlock()
}

// publishLocked delivers in publish order to every subscriber. Callers hold
// rm.mu, which is what guarantees per-room ordering.
func (rm *room) publishLocked(r *Registry, ev Event) PublishResult {
	res := PublishResult{}
	for connID, sub := range rm.subs {
		if connID == ev.origin && !ev.echo {
			continue
		}
		if sub.trySend(ev) {
			res.Delivered++
			continue
		}
		switch r.policy.OnBackpressure(rm.id, connID) {
		case KickSubscriber:
			sub.close()
			delete(rm.subs, connID)
			res.Kicked = append(res.Kicked, connID)
		default:
			sub.dropOldest()
			if sub.trySend(ev) {
				res.Delivered++
			} else {
				res.Dropped = append(res.Dropped, connID)
			}
		}
	}
	if len(res.Dropped) > 0 || len(res.Kicked) > 0 {
		log.Warn().Str("module", "relay.registry").
			Str("room", string(rm.id)).
			Str("event", string(ev.Type)).
			Int("dropped", len(res.Dropped)).
			Int("kicked", len(res.Kicked)).
			Msg("slow consumers on publish")
	}
	return res
}

func (rm *room) participantsLocked() []domain.Participant {
	out := make([]domain.Participant, 0, len(rm.participants))
	for _, p := range rm.participants {
		out = append(out, p)
	}
	return out
}

func (rm *room) snapshotLocked() Snapshot {
	s := Snapshot{
		Offers:        []domain.SessionDescription{},
		Answers:       []domain.SessionDescription{},
		ICECandidates: make([]domain.ICECandidate, len(rm.candidates)),
		Participants:  rm.participantsLocked(),
	}
	if rm.offer != nil {
		s.Offers = append(s.Offers, *rm.offer)
	}
	if rm.answer != nil {
		s.Answers = append(s.Answers, *rm.answer)
	}
	copy(s.ICECandidates, rm.candidates)
	return s
}
