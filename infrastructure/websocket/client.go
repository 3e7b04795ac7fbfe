package websocket

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// client owns one websocket. Frames are written by a single writer goroutine
// fed through a bounded queue.
type client struct {
	id        domain.ConnectionID
	userID    uuid.UUID
	conn      *ws.Conn
	log       *slog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id domain.ConnectionID, userID uuid.UUID, conn *ws.Conn, log *slog.Logger, buffer int) *client {
	return &client{
		id:     id,
		userID: userID,
		conn:   conn,
		log:    log.With("connection_id", id),
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// enqueue never blocks: a slow reader loses the frame instead of stalling the sender.
func (c *client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return errors.ErrConnectionGone
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errors.ErrSendQueueFull
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump blocks until the peer goes away or the connection is closed.
func (c *client) readPump(onFrame func(data []byte)) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseGoingAway, ws.CloseNormalClosure) {
				c.log.Warn("Unexpected websocket close", "error", err)
			}
			return
		}
		if messageType != ws.TextMessage {
			continue
		}
		onFrame(data)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.TextMessage, frame); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(ws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
