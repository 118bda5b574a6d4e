package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"chat-relay/internal/models"
	"chat-relay/internal/presence"
)

// PresencePublisher emits user online/offline events for the backend.
type PresencePublisher interface {
	PublishPresenceJoin(userId string) error
	PublishPresenceLeave(userId string) error
}

// NopPublisher is used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishPresenceJoin(string) error  { return nil }
func (NopPublisher) PublishPresenceLeave(string) error { return nil }

// EventRouter handles chat traffic coming off a connection. The returned
// error is a validation failure to acknowledge back to the sender.
type EventRouter interface {
	RouteMessage(ctx context.Context, msg models.Message) error
	RouteFile(ctx context.Context, msg models.Message) error
}

// Hub maintains the live WebSocket connections and the room membership
// map. Registration and broadcast requests flow through channels into Run;
// membership and connection lookups take the read lock so presence queries
// never observe a set mid-mutation.
type Hub struct {
	// Map: roomId -> connId -> client
	rooms map[string]map[presence.ConnID]*Client

	// Every live connection by id, whatever rooms it is in
	conns map[presence.ConnID]*Client

	mu sync.RWMutex

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Broadcast frames to clients in a room (exported for the Redis bridge)
	Broadcast chan *models.BroadcastMessage

	registry *presence.Registry
	events   PresencePublisher
	router   EventRouter
}

func NewHub(registry *presence.Registry, events PresencePublisher) *Hub {
	return &Hub{
		rooms:      make(map[string]map[presence.ConnID]*Client),
		conns:      make(map[presence.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Broadcast:  make(chan *models.BroadcastMessage),
		registry:   registry,
		events:     events,
	}
}

// SetRouter wires the message router. Must be called before Run; the
// router needs the hub for broadcasting, so it is constructed second.
func (h *Hub) SetRouter(router EventRouter) {
	h.router = router
}

func (h *Hub) Run() {
	slog.Info("[HUB] Starting hub event loop")
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.Broadcast:
			h.broadcastToRoom(message)
		}
	}
}

// BroadcastToRoom queues a frame for every connection currently in roomId.
func (h *Hub) BroadcastToRoom(roomId string, payload []byte) {
	h.Broadcast <- &models.BroadcastMessage{RoomId: roomId, Payload: payload}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.conns[client.id] = client
	h.mu.Unlock()

	h.registry.Register(client.userId, client.id)
	first := h.registry.ConnectionCount(client.userId) == 1

	slog.Info("[HUB] Client registered", "user", client.userId, "conn", client.id, "type", client.connType)

	if client.connType == ConnChat && client.roomId != "" {
		h.JoinRoom(client, client.roomId)
	}

	if first {
		if err := h.events.PublishPresenceJoin(client.userId); err != nil {
			slog.Error("[HUB] Failed to publish presence:join", "user", client.userId, "error", err)
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.conns[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, client.id)

	for roomId := range client.rooms {
		if members, ok := h.rooms[roomId]; ok {
			delete(members, client.id)
			if len(members) == 0 {
				slog.Debug("[HUB] Room empty, removing", "room", roomId)
				delete(h.rooms, roomId)
			}
		}
	}
	close(client.send)
	h.mu.Unlock()

	h.registry.Deregister(client.userId, client.id)
	slog.Info("[HUB] Client unregistered", "user", client.userId, "conn", client.id)

	if h.registry.ConnectionCount(client.userId) == 0 {
		if err := h.events.PublishPresenceLeave(client.userId); err != nil {
			slog.Error("[HUB] Failed to publish presence:leave", "user", client.userId, "error", err)
		}
	}
}

// JoinRoom adds client to roomId and acknowledges with a joinedRoom event.
// Joining a room the connection is already in changes nothing but still
// acknowledges.
func (h *Hub) JoinRoom(client *Client, roomId string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client.id]; !ok {
		// Torn down while the join was in flight
		return
	}

	members, ok := h.rooms[roomId]
	if !ok {
		members = make(map[presence.ConnID]*Client)
		h.rooms[roomId] = members
	}
	if _, ok := members[client.id]; !ok {
		members[client.id] = client
		client.rooms[roomId] = true
		slog.Info("[HUB] Client joined room", "user", client.userId, "conn", client.id, "room", roomId)
	}

	payload, err := json.Marshal(models.NewEvent(models.EventJoinedRoom, roomId, "Joined room "+roomId))
	if err != nil {
		slog.Error("[HUB] Failed to marshal join ack", "room", roomId, "error", err)
		return
	}
	select {
	case client.send <- payload:
	default:
		slog.Warn("[HUB] Dropping join ack, client buffer full", "user", client.userId, "conn", client.id)
	}
}

func (h *Hub) broadcastToRoom(message *models.BroadcastMessage) {
	h.mu.RLock()
	members := h.rooms[message.RoomId]

	sent := 0
	var stale []*Client
	for _, client := range members {
		select {
		case client.send <- message.Payload:
			sent++
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	slog.Debug("[HUB] Broadcast complete", "room", message.RoomId, "sent", sent, "stale", len(stale))

	// Evict clients whose buffers are full; their write pump is wedged.
	for _, client := range stale {
		slog.Warn("[HUB] Client buffer full, disconnecting", "user", client.userId, "conn", client.id)
		h.unregisterClient(client)
	}
}

// InRoom reports whether conn is currently a member of roomId.
func (h *Hub) InRoom(roomId string, conn presence.ConnID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.rooms[roomId][conn]
	return ok
}

// SendToConnections delivers payload to each of the given connections,
// regardless of room membership. Unknown ids are skipped; connections with
// a full buffer drop the frame rather than block.
func (h *Hub) SendToConnections(conns []presence.ConnID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range conns {
		client, ok := h.conns[id]
		if !ok {
			continue
		}
		select {
		case client.send <- payload:
		default:
			slog.Warn("[HUB] Dropping frame, client buffer full", "user", client.userId, "conn", client.id)
		}
	}
}

// sendToClient delivers payload to a single live connection. A no-op if
// the connection has already been unregistered.
func (h *Hub) sendToClient(client *Client, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.conns[client.id]; !ok {
		return
	}
	select {
	case client.send <- payload:
	default:
		slog.Warn("[HUB] Dropping frame, client buffer full", "user", client.userId, "conn", client.id)
	}
}
