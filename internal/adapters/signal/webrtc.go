package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/domain"
	"github.com/interviewdesk/relay/internal/relay"
)

// Handshake artifacts are recorded for late joiners and relayed to every
// other participant; the sender never sees its own signaling echoed back.

func (ctl *Controller) handleOffer(cn *conn, att *relay.Attachment, data []byte) {
	var p struct {
		Type  string                    `json:"type"`
		Offer domain.SessionDescription `json:"offer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad offer payload")
		ctl.sendError(cn, "bad_payload")
		return
	}
	ctl.registry.RelayOffer(att.RoomID(), att.Participant(), p.Offer)
}

func (ctl *Controller) handleAnswer(cn *conn, att *relay.Attachment, data []byte) {
	var p struct {
		Type   string                    `json:"type"`
		Answer domain.SessionDescription `json:"answer"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad answer payload")
		ctl.sendError(cn, "bad_payload")
		return
	}
	ctl.registry.RelayAnswer(att.RoomID(), att.Participant(), p.Answer)
}

func (ctl *Controller) handleCandidate(cn *conn, att *relay.Attachment, data []byte) {
	var p struct {
		Type      string              `json:"type"`
		Candidate domain.ICECandidate `json:"candidate"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		ctl.sendError(cn, "bad_payload")
		return
	}
	ctl.registry.RelayCandidate(att.RoomID(), att.Participant(), p.Candidate)
}
