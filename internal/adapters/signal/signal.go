package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/interviewdesk/relay/internal/config"
	"github.com/interviewdesk/relay/internal/domain"
	"github.com/interviewdesk/relay/internal/relay"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Controller handles the bidirectional websocket transport. It is a thin
// translator: every room mutation goes through the injected Registry.
type Controller struct {
	registry *relay.Registry
	cfg      *config.Config
	chat     *MessageRateLimiter
}

func NewController(reg *relay.Registry, cfg *config.Config) *Controller {
	return &Controller{
		registry: reg,
		cfg:      cfg,
		chat:     NewMessageRateLimiter(cfg.ChatBurst, cfg.ChatWindow),
	}
}

// wsConn is an indirection over *websocket.Conn to ease testing.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

type conn struct {
	ws   wsConn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(ws wsConn, buf int) *conn {
	return &conn{ws: ws, send: make(chan []byte, buf)}
}

func (c *conn) trySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal attaches a client presenting (roomId, userId, role) on the
// query string. A missing field rejects the connection before the upgrade;
// no room state is touched.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	attach, err := domain.ParseAttach(c.Query("roomId"), c.Query("userId"), c.Query("role"))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejected attach")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)

	cn := newConn(ws, ctl.cfg.SendBuffer)
	att := ctl.registry.Attach(attach)

	log.Info().Str("module", "signal").
		Str("room", string(attach.RoomID)).
		Str("user", string(attach.UserID)).
		Str("role", string(attach.Role)).
		Msg("new WS connection")

	// Queued before the pumps start, so the client always sees its
	// confirmation first, then the presence of peers already in the room.
	ctl.sendJSON(cn, relay.ConnectionConfirmedEvent(att.RoomID(), att.Participant()))
	for _, peer := range att.Peers {
		ctl.sendJSON(cn, relay.UserJoinedEvent(peer))
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, cn)
	go ctl.fanoutPump(ctx, cn, att)
	go ctl.readPump(ctx, cancel, cn, att)
}

// sendJSON queues a frame. A full send buffer means this client has stopped
// consuming; the connection is torn down rather than stalling the room.
func (ctl *Controller) sendJSON(cn *conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := cn.trySend(b); errors.Is(err, ErrBackpressure) {
		log.Warn().Str("module", "signal").Msg("send buffer full, closing connection")
		cn.close()
	}
}
