// Package rest is the fallback transport for environments that cannot hold
// a bidirectional socket: plain POSTs for sending handshake artifacts and a
// long-lived SSE stream for receiving room events.
package rest

import (
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/domain"
	"github.com/interviewdesk/relay/internal/relay"
)

type Controller struct {
	registry *relay.Registry
}

func NewController(reg *relay.Registry) *Controller {
	return &Controller{registry: reg}
}

func roomParam(c *gin.Context) (domain.RoomID, bool) {
	id := c.Param("roomId")
	if id == "" || len(id) > domain.MaxRoomIDLen {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid roomId"})
		return "", false
	}
	return domain.RoomID(id), true
}

// The POST handlers acknowledge as soon as the artifact is recorded and
// published; delivery to listeners is fire-and-forget.

func (ctl *Controller) PostOffer(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var sd domain.SessionDescription
	if err := c.ShouldBindJSON(&sd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	ctl.registry.RelayOffer(roomID, domain.Participant{}, sd)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctl *Controller) PostAnswer(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var sd domain.SessionDescription
	if err := c.ShouldBindJSON(&sd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	ctl.registry.RelayAnswer(roomID, domain.Participant{}, sd)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (ctl *Controller) PostCandidate(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	var cand domain.ICECandidate
	if err := c.ShouldBindJSON(&cand); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	ctl.registry.RelayCandidate(roomID, domain.Participant{}, cand)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Events opens the long-lived stream: a room-state catch-up first, then
// every room event as it is published. The stream holder is a passive
// observer, not a participant, so closing it implies no departure event.
func (ctl *Controller) Events(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}

	obs := ctl.registry.Observe(roomID)
	defer obs.Close()

	log.Info().Str("module", "rest").Str("room", string(roomID)).Msg("event stream opened")

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	sentState := false
	c.Stream(func(w io.Writer) bool {
		if !sentState {
			sentState = true
			c.Render(-1, sse.Event{Event: "message", Data: relay.RoomStateEvent(obs.Snapshot)})
			return true
		}
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-obs.Events():
			if !ok {
				// Room deleted or subscriber kicked; end the stream.
				return false
			}
			c.Render(-1, sse.Event{Event: "message", Data: ev})
			return true
		}
	})

	log.Info().Str("module", "rest").Str("room", string(roomID)).Msg("event stream closed")
}

// Status is a presence probe for dashboards: who is in the room right now.
func (ctl *Controller) Status(c *gin.Context) {
	roomID, ok := roomParam(c)
	if !ok {
		return
	}
	participants := ctl.registry.Participants(roomID)
	if participants == nil {
		participants = []domain.Participant{}
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":       roomID,
		"active":       len(participants) > 0,
		"participants": participants,
	})
}
