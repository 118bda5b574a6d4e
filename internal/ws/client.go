package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"chat-relay/internal/models"
	"chat-relay/internal/presence"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max message size
	maxMessageSize = 512 * 1024 // 512 KB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Validate origin in production
		return true
	},
}

// ConnType distinguishes what a connection is for. Chat connections join a
// room at open; notification connections only receive newNotification
// pushes.
type ConnType string

const (
	ConnNotification ConnType = "notification"
	ConnChat         ConnType = "chat"
)

// Valid reports whether t is a known connection type.
func (t ConnType) Valid() bool {
	return t == ConnNotification || t == ConnChat
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	id       presence.ConnID
	userId   string
	connType ConnType

	// Room to join at open; only set for chat connections
	roomId string

	// Rooms this connection is a member of; guarded by hub.mu
	rooms map[string]bool
}

// ReadPump pumps events from the WebSocket into the hub and router
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("[CLIENT] Unexpected close", "user", c.userId, "conn", c.id, "error", err)
			}
			break
		}

		c.handleClientMessage(raw)
	}
}

// WritePump pumps frames from the hub to the WebSocket
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				slog.Error("[CLIENT] Failed to get writer", "user", c.userId, "conn", c.id, "error", err)
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				slog.Error("[CLIENT] Failed to close writer", "user", c.userId, "conn", c.id, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Error("[CLIENT] Failed to send ping", "user", c.userId, "conn", c.id, "error", err)
				return
			}
		}
	}
}

func (c *Client) handleClientMessage(raw []byte) {
	var frame struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		slog.Error("[CLIENT] Error unmarshaling frame", "user", c.userId, "conn", c.id, "error", err)
		c.sendError("invalid frame")
		return
	}

	switch frame.Type {
	case models.EventJoinChat:
		var join models.JoinRequest
		if err := json.Unmarshal(frame.Data, &join); err != nil || join.RoomId == "" {
			slog.Warn("[CLIENT] joinChat without roomId", "user", c.userId, "conn", c.id)
			c.sendError("invalid join: missing roomId")
			return
		}
		c.hub.JoinRoom(c, join.RoomId.String())

	case models.EventSendMessage:
		var msg models.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			slog.Warn("[CLIENT] Malformed sendMessage payload", "user", c.userId, "conn", c.id, "error", err)
			c.sendError("invalid message payload")
			return
		}
		if err := c.hub.router.RouteMessage(context.Background(), msg); err != nil {
			c.sendError(err.Error())
		}

	case models.EventSendFile:
		var msg models.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			slog.Warn("[CLIENT] Malformed sendFile payload", "user", c.userId, "conn", c.id, "error", err)
			c.sendError("invalid message payload")
			return
		}
		if err := c.hub.router.RouteFile(context.Background(), msg); err != nil {
			c.sendError(err.Error())
		}

	default:
		slog.Warn("[CLIENT] Unknown event type", "type", frame.Type, "user", c.userId, "conn", c.id)
	}
}

// sendError acknowledges a rejected event to this connection only.
func (c *Client) sendError(reason string) {
	payload, err := json.Marshal(models.NewEvent(models.EventError, "", reason))
	if err != nil {
		slog.Error("[CLIENT] Failed to marshal error ack", "user", c.userId, "conn", c.id, "error", err)
		return
	}
	c.hub.sendToClient(c, payload)
}
