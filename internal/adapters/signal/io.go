package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/relay"
)

func (ctl *Controller) writePump(ctx context.Context, cancel context.CancelFunc, cn *conn) {
	defer cancel()
	defer cn.close()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-cn.send:
			if !ok {
				return
			}
			if err := cn.ws.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := cn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// fanoutPump forwards room events to this client. A closed events channel
// means the attachment left, the room was deleted, or the backpressure
// policy kicked this subscriber; either way the connection comes down.
func (ctl *Controller) fanoutPump(ctx context.Context, cn *conn, att *relay.Attachment) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-att.Events():
			if !ok {
				cn.close()
				return
			}
			ctl.sendJSON(cn, ev)
		}
	}
}

// readPump owns the attachment lifecycle: whatever ends the read loop
// (client close, network failure, explicit leave) releases the participant
// exactly once.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, cn *conn, att *relay.Attachment) {
	defer func() {
		att.Leave()
		cn.close()
		cancel()
		log.Info().Str("module", "signal").
			Str("room", string(att.RoomID())).
			Str("user", string(att.Participant().UserID)).
			Msg("readPump closing")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := cn.ws.SetReadDeadline(time.Now().Add(2 * ctl.cfg.PingPeriod)); err != nil {
				return
			}
			_, data, err := cn.ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("readPump read error")
				return
			}
			if !ctl.handleMessage(cn, att, data) {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound frame. Returns false when the client
// asked to leave. A malformed frame fails in isolation: it is logged and
// the connection stays up.
func (ctl *Controller) handleMessage(cn *conn, att *relay.Attachment, data []byte) bool {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(cn, "bad_payload")
		return true
	}

	switch env.Type {
	case "offer":
		ctl.handleOffer(cn, att, data)
	case "answer":
		ctl.handleAnswer(cn, att, data)
	case "ice-candidate":
		ctl.handleCandidate(cn, att, data)
	case "chat-message":
		ctl.handleChat(cn, att, data)
	case "code-update":
		ctl.handleCode(cn, att, data)
	case "ping":
		ctl.handlePing(cn)
	case "leave":
		return false
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
	return true
}

func (ctl *Controller) handlePing(cn *conn) {
	ctl.sendJSON(cn, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *Controller) sendError(cn *conn, code string) {
	ctl.sendJSON(cn, map[string]any{"type": "error", "error": code})
}
