package redis

import (
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"chat-relay/internal/models"
	"chat-relay/internal/ws"
)

// SubscribeToRoomEvents bridges backend-published room events into the hub
// broadcast. The backend publishes on "room:<roomId>"; the payload is an
// event envelope forwarded verbatim to every connection in that room.
func SubscribeToRoomEvents(client *Client, hub *ws.Hub) {
	slog.Info("[REDIS] Starting room event subscription")

	pubsub := client.rdb.PSubscribe(client.ctx, "room:*")
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(client.ctx); err != nil {
		slog.Error("[REDIS] Failed to receive subscription confirmation", "error", err)
		return
	}

	slog.Info("[REDIS] Subscribed", "pattern", "room:*")

	for msg := range pubsub.Channel() {
		roomId := strings.TrimPrefix(msg.Channel, "room:")
		if roomId == "" {
			slog.Warn("[REDIS] Event without room id", "channel", msg.Channel)
			continue
		}

		// Validate the envelope before fanning it out
		var event models.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			slog.Error("[REDIS] Error unmarshaling event", "channel", msg.Channel, "error", err)
			continue
		}

		hub.Broadcast <- &models.BroadcastMessage{
			RoomId:  roomId,
			Payload: []byte(msg.Payload),
		}
	}

	slog.Info("[REDIS] Room event subscription closed")
}
