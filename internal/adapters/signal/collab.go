package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/relay"
)

// Chat and editor updates are shared collaborative state: unlike signaling
// they are broadcast to the whole room, sender included.

func (ctl *Controller) handleChat(cn *conn, att *relay.Attachment, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(cn, "bad_payload")
		return
	}
	if p.Message == "" {
		ctl.sendError(cn, "empty_message")
		return
	}
	if !ctl.chat.Allow(att.Participant().UserID) {
		log.Warn().Str("module", "signal").
			Str("user", string(att.Participant().UserID)).
			Msg("chat rate limit exceeded")
		ctl.sendError(cn, "rate_limited")
		return
	}
	ctl.registry.RelayChat(att.RoomID(), att.Participant(), p.Message)
}

func (ctl *Controller) handleCode(cn *conn, att *relay.Attachment, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Code     string `json:"code"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad code payload")
		ctl.sendError(cn, "bad_payload")
		return
	}
	ctl.registry.RelayCode(att.RoomID(), att.Participant(), p.Code, p.Language)
}
