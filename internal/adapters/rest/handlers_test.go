package rest_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	router "github.com/interviewdesk/relay/internal/adapters/http"
	"github.com/interviewdesk/relay/internal/config"
	"github.com/interviewdesk/relay/internal/domain"
	"github.com/interviewdesk/relay/internal/relay"
)

func newServer(t *testing.T) (*httptest.Server, *relay.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Mode:             "release",
		ReadLimit:        32768,
		PingPeriod:       54 * time.Second,
		WriteTimeout:     5 * time.Second,
		SendBuffer:       64,
		SubscriberBuffer: 32,
		MaxICECandidates: 64,
		ChatBurst:        100,
		ChatWindow:       10 * time.Second,
	}
	reg := relay.NewRegistry(relay.Options{})
	srv := httptest.NewServer(router.SetupRouter(context.Background(), cfg, reg))
	t.Cleanup(srv.Close)
	return srv, reg
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// sseReader pulls decoded events off a live event-stream response.
type sseReader struct {
	t  *testing.T
	br *bufio.Reader
}

func (r *sseReader) next() relay.Event {
	r.t.Helper()
	for {
		line, err := r.br.ReadString('\n')
		if err != nil {
			r.t.Fatalf("stream read: %v", err)
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev relay.Event
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			r.t.Fatalf("decode %q: %v", payload, err)
		}
		return ev
	}
}

func openStream(t *testing.T, srv *httptest.Server, room string) *sseReader {
	t.Helper()
	resp, err := http.Get(srv.URL + "/api/rooms/" + room + "/events")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}
	return &sseReader{t: t, br: bufio.NewReader(resp.Body)}
}

func TestPostOfferAcknowledges(t *testing.T) {
	srv, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/api/rooms/r9/offer", map[string]any{"type": "offer", "sdp": "X"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success {
		t.Fatal("expected success acknowledgement")
	}
}

func TestPostRejectsMalformedBody(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/api/rooms/r9/offer", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestEventsStreamBootstrapsFromSnapshot(t *testing.T) {
	srv, _ := newServer(t)

	postJSON(t, srv.URL+"/api/rooms/r2/ice-candidate", map[string]any{"candidate": "c1"})
	postJSON(t, srv.URL+"/api/rooms/r2/ice-candidate", map[string]any{"candidate": "c2"})

	stream := openStream(t, srv, "r2")

	state := stream.next()
	if state.Type != relay.EventRoomState {
		t.Fatalf("first event must be room-state, got %+v", state)
	}
	if len(state.ICECandidates) != 2 ||
		state.ICECandidates[0].Candidate != "c1" ||
		state.ICECandidates[1].Candidate != "c2" {
		t.Fatalf("room-state must carry both recorded candidates, got %+v", state.ICECandidates)
	}

	// Artifacts posted after the stream opened arrive live, in order.
	postJSON(t, srv.URL+"/api/rooms/r2/offer", map[string]any{"type": "offer", "sdp": "late"})

	ev := stream.next()
	if ev.Type != relay.EventOffer || ev.Offer == nil || ev.Offer.SDP != "late" {
		t.Fatalf("expected live offer after bootstrap, got %+v", ev)
	}
}

func TestStreamSeesPushTransportTraffic(t *testing.T) {
	srv, reg := newServer(t)

	att := reg.Attach(domain.Attach{RoomID: "r3", UserID: "alice", Role: "interviewer"})
	defer att.Leave()

	stream := openStream(t, srv, "r3")
	if ev := stream.next(); ev.Type != relay.EventRoomState {
		t.Fatalf("expected room-state, got %+v", ev)
	}

	reg.RelayChat("r3", att.Participant(), "hello fallback")

	ev := stream.next()
	if ev.Type != relay.EventChatMessage || ev.From != "alice" || ev.Message != "hello fallback" {
		t.Fatalf("expected chat from push transport, got %+v", ev)
	}
}

func TestStatusReportsPresence(t *testing.T) {
	srv, reg := newServer(t)

	att := reg.Attach(domain.Attach{RoomID: "r4", UserID: "alice", Role: "interviewer"})
	defer att.Leave()

	resp, err := http.Get(srv.URL + "/api/rooms/r4/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		RoomID       string               `json:"roomId"`
		Active       bool                 `json:"active"`
		Participants []domain.Participant `json:"participants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Active || len(body.Participants) != 1 || body.Participants[0].UserID != "alice" {
		t.Fatalf("unexpected status: %+v", body)
	}
}

func TestStatusUnknownRoomInactive(t *testing.T) {
	srv, reg := newServer(t)

	resp, err := http.Get(srv.URL + "/api/rooms/never-seen/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Active       bool                 `json:"active"`
		Participants []domain.Participant `json:"participants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Active || len(body.Participants) != 0 {
		t.Fatalf("unknown room must be inactive, got %+v", body)
	}
	// A presence probe must not create room state.
	if reg.Has("never-seen") {
		t.Fatal("status probe created a room")
	}
}
