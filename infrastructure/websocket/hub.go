package websocket

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/pipeline"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/rs/xid"
)

const (
	defaultSendBuffer = 256
	frameTimeout      = 5 * time.Second

	FrameOpenChat  = "openChat"
	FrameCloseChat = "closeChat"
	FrameError     = "error"
)

// Outbound is the frame written to clients, for pushed events as well as replies.
type Outbound struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Inbound is the frame a client sends to open or close a chat.
type Inbound struct {
	Type   string    `json:"type"`
	ChatID uuid.UUID `json:"chatId"`
}

// Hub upgrades authenticated HTTP requests to websockets, keeps the registry
// in sync with live sockets and implements contract.Transport.
type Hub struct {
	log        *slog.Logger
	registry   contract.IRegistry
	pipeline   *pipeline.Pipeline
	upgrader   ws.Upgrader
	sendBuffer int

	mu      sync.RWMutex
	clients map[domain.ConnectionID]*client
	closed  bool
}

type Option func(*Hub)

// WithSendBuffer sets the number of frames queued per connection.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithCheckOrigin replaces the same-host origin check of the upgrader.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(h *Hub) {
		if check != nil {
			h.upgrader.CheckOrigin = check
		}
	}
}

// AllowOrigins accepts requests without an Origin header and those whose
// Origin is one of origins. It returns nil for an empty list, keeping the
// upgrader default.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.ContainsFunc(origins, func(o string) bool {
			return strings.EqualFold(o, origin)
		})
	}
}

// NewHub fails when p cannot serve the requests emitted by client frames.
func NewHub(log *slog.Logger, registry contract.IRegistry, p *pipeline.Pipeline, opts ...Option) (*Hub, error) {
	if err := p.Require(chat.OpenChat{}, chat.CloseChat{}); err != nil {
		return nil, fmt.Errorf("websocket hub: %w", err)
	}
	h := &Hub{
		log:        log,
		registry:   registry,
		pipeline:   p,
		sendBuffer: defaultSendBuffer,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[domain.ConnectionID]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Send implements contract.Transport.
func (h *Hub) Send(ctx context.Context, connID domain.ConnectionID, eventName string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return errors.ErrConnectionGone
	}

	frame, err := json.Marshal(Outbound{Event: eventName, Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", eventName, err)
	}
	return c.enqueue(frame)
}

// ServeHTTP expects the user identity injected by auth.Middleware.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFrom(r.Context())
	if !ok {
		http.Error(w, "authorization token is missing", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(domain.ConnectionID(xid.New().String()), userID, conn, h.log, h.sendBuffer)
	if !h.add(c) {
		c.close()
		return
	}
	h.registry.Connect(c.id, userID)
	h.log.Info("Client connected", "connection_id", c.id, "user_id", userID, "remote_addr", r.RemoteAddr)

	go c.writePump()
	c.readPump(func(data []byte) { h.handleFrame(c, data) })

	h.remove(c.id)
	h.registry.Disconnect(c.id)
	h.log.Info("Client disconnected", "connection_id", c.id, "user_id", userID)
}

// Run implements contract.Worker: it waits for ctx then closes every socket.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.log.Info(fmt.Sprintf("Websocket hub stopped, %d connections closed", len(clients)))
	return nil
}

func (h *Hub) handleFrame(c *client, data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.reply(c, FrameError, domain.Fail[domain.Unit](errors.New(errors.CodeInvalidFormat, "frame is not valid JSON")))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch in.Type {
	case FrameOpenChat:
		h.reply(c, in.Type, pipeline.Send[domain.Unit](ctx, h.pipeline, chat.OpenChat{ChatID: in.ChatID, UserID: c.userID, ConnectionID: c.id}))
	case FrameCloseChat:
		h.reply(c, in.Type, pipeline.Send[domain.Unit](ctx, h.pipeline, chat.CloseChat{ChatID: in.ChatID, ConnectionID: c.id}))
	default:
		h.reply(c, FrameError, domain.Fail[domain.Unit](errors.Field(errors.CodeInvalidValue, "type", "unknown frame type", in.Type)))
	}
}

func (h *Hub) reply(c *client, name string, result domain.Result[domain.Unit]) {
	frame, err := json.Marshal(Outbound{Event: name, Payload: result})
	if err != nil {
		h.log.Error("Reply encoding failed", "connection_id", c.id, "error", err)
		return
	}
	if err := c.enqueue(frame); err != nil {
		h.log.Debug("Reply dropped", "connection_id", c.id, "error", err)
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) remove(connID domain.ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}
