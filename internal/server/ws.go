package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/duelgrid/syncd/internal/engine"
	"github.com/duelgrid/syncd/internal/engine/state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// inboundMessage is the wire shape of client commands.
type inboundMessage struct {
	Type   string            `json:"type"` // "action" | "undo" | "redo" | "resync"
	Action *state.GameAction `json:"action,omitempty"`
	Steps  int               `json:"steps,omitempty"`
}

// Client is one WebSocket participant attached to a session.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	session *Session
	logger  *zap.Logger
}

// ServeWS upgrades an HTTP request to a WebSocket connection and attaches
// it to the session named by the session_id query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	sess, ok := h.GetSession(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 32),
		session: sess,
		logger:  h.logger.Named("ws"),
	}

	catchup := sess.Subscribe(client.send)

	go client.writePump()
	go client.readPump()

	client.send <- catchup
}

func (c *Client) readPump() {
	defer func() {
		c.session.Unsubscribe(c.send)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError(err.Error())
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inboundMessage) {
	switch msg.Type {
	case "action":
		if msg.Action == nil {
			c.sendError("action message requires an action")
			return
		}
		if _, err := c.session.Submit(*msg.Action); err != nil {
			c.sendFailure(err)
		}
	case "undo":
		if _, err := c.session.Undo(msg.Steps); err != nil {
			c.sendFailure(err)
		}
	case "redo":
		if _, err := c.session.Redo(msg.Steps); err != nil {
			c.sendFailure(err)
		}
	case "resync":
		cur := c.session.CurrentState()
		c.enqueue(marshalFrame(Frame{
			Type:      "state",
			SessionID: c.session.ID,
			Version:   cur.Version,
			State:     cur,
		}))
	default:
		c.sendError("unknown message type " + msg.Type)
	}
}

func (c *Client) sendError(reason string) {
	c.enqueue(marshalFrame(Frame{
		Type:      "error",
		SessionID: c.session.ID,
		Error:     reason,
	}))
}

// sendFailure reports an engine error to the client. A base version that
// fell out of the retained window is flagged so the client knows to request
// a resync instead of retrying.
func (c *Client) sendFailure(err error) {
	var notRetained *engine.VersionNotRetainedError
	c.enqueue(marshalFrame(Frame{
		Type:           "error",
		SessionID:      c.session.ID,
		Error:          err.Error(),
		ResyncRequired: errors.As(err, &notRetained),
	}))
}

func (c *Client) enqueue(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
