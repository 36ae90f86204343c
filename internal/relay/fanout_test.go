package relay

import (
	"fmt"
	"testing"
)

func TestPublishOrderPerRoom(t *testing.T) {
	r := NewRegistry(Options{})
	a := testAttach(r, "r1", "alice", "interviewer")
	b := testAttach(r, "r1", "bob", "candidate")
	defer a.Leave()
	defer b.Leave()

	recvEvent(t, a.Events()) // user-joined bob

	for i := 0; i < 10; i++ {
		r.RelayChat("r1", a.Participant(), fmt.Sprintf("m%d", i))
	}
	for i := 0; i < 10; i++ {
		ev := recvEvent(t, b.Events())
		if ev.Type != EventChatMessage || ev.Message != fmt.Sprintf("m%d", i) {
			t.Fatalf("event %d out of order: %+v", i, ev)
		}
	}
}

func TestSignalingExcludesSenderChatIncludesIt(t *testing.T) {
	r := NewRegistry(Options{})
	a := testAttach(r, "r1", "alice", "interviewer")
	b := testAttach(r, "r1", "bob", "candidate")
	defer a.Leave()
	defer b.Leave()

	recvEvent(t, a.Events()) // user-joined bob

	r.RelayOffer("r1", a.Participant(), offer("X"))
	r.RelayChat("r1", a.Participant(), "hi")

	// B sees both the offer and the chat, tagged with the sender.
	ev := recvEvent(t, b.Events())
	if ev.Type != EventOffer || ev.From != "alice" || ev.Offer.SDP != "X" {
		t.Fatalf("expected offer from alice, got %+v", ev)
	}
	ev = recvEvent(t, b.Events())
	if ev.Type != EventChatMessage || ev.From != "alice" || ev.Message != "hi" {
		t.Fatalf("expected chat from alice, got %+v", ev)
	}

	// A's next event is the chat: its own offer was never echoed back.
	ev = recvEvent(t, a.Events())
	if ev.Type != EventChatMessage || ev.From != "alice" || ev.Message != "hi" {
		t.Fatalf("expected chat echo for sender, got %+v", ev)
	}
	expectNone(t, a.Events())
}

func TestCodeUpdateIncludesSender(t *testing.T) {
	r := NewRegistry(Options{})
	a := testAttach(r, "r1", "alice", "interviewer")
	b := testAttach(r, "r1", "bob", "candidate")
	defer a.Leave()
	defer b.Leave()

	recvEvent(t, a.Events()) // user-joined bob

	r.RelayCode("r1", b.Participant(), "print(1)", "python")

	for _, att := range []*Attachment{a, b} {
		ev := recvEvent(t, att.Events())
		if ev.Type != EventCodeUpdate || ev.Code != "print(1)" || ev.Language != "python" {
			t.Fatalf("expected code-update for both sides, got %+v", ev)
		}
	}
}

func TestNoCrossRoomDelivery(t *testing.T) {
	r := NewRegistry(Options{})
	a := testAttach(r, "r1", "alice", "interviewer")
	c := testAttach(r, "r2", "carol", "interviewer")
	defer a.Leave()
	defer c.Leave()

	r.RelayChat("r1", a.Participant(), "hello r1")

	recvEvent(t, a.Events()) // own chat echo
	expectNone(t, c.Events())
}

func TestSlowConsumerDropOldest(t *testing.T) {
	r := NewRegistry(Options{SubscriberBuffer: 1})
	a := testAttach(r, "r1", "alice", "interviewer")
	b := testAttach(r, "r1", "bob", "candidate")
	defer a.Leave()
	defer b.Leave()

	// A never consumes: its one-slot buffer holds user-joined(bob). Each new
	// publish evicts the oldest buffered event instead of blocking.
	r.RelayChat("r1", b.Participant(), "c1")
	r.RelayChat("r1", b.Participant(), "c2")

	ev := recvEvent(t, a.Events())
	if ev.Type != EventChatMessage || ev.Message != "c2" {
		t.Fatalf("expected only the newest event to survive, got %+v", ev)
	}
	expectNone(t, a.Events())
}

func TestKickPolicyClosesWedgedSubscriber(t *testing.T) {
	r := NewRegistry(Options{SubscriberBuffer: 1, Policy: KickPolicy{}})
	a := testAttach(r, "r1", "alice", "interviewer")
	b := testAttach(r, "r1", "bob", "candidate")
	defer a.Leave()
	defer b.Leave()

	// A's buffer is full with user-joined(bob); the next publish kicks it.
	r.RelayChat("r1", b.Participant(), "x")

	if ev := recvEvent(t, a.Events()); ev.Type != EventUserJoined {
		t.Fatalf("expected buffered user-joined, got %+v", ev)
	}
	expectClosed(t, a.Events())

	// B is unaffected.
	if ev := recvEvent(t, b.Events()); ev.Type != EventChatMessage || ev.Message != "x" {
		t.Fatalf("expected chat delivery to the healthy subscriber, got %+v", ev)
	}
}
