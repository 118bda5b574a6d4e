package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goccy/go-json"

	"chat-relay/internal/models"
)

// Validation failures reported back to the sending connection.
var (
	ErrMissingRoom     = errors.New("invalid message: missing roomId")
	ErrMissingSender   = errors.New("invalid message: missing senderId")
	ErrMissingBody     = errors.New("invalid message: missing text")
	ErrMissingPayload  = errors.New("invalid message: missing image")
	ErrUnknownChatType = errors.New("invalid message: unknown chatType")
)

// RoomBroadcaster delivers a marshaled frame to every connection currently
// in a room.
type RoomBroadcaster interface {
	BroadcastToRoom(roomId string, payload []byte)
}

// ParticipantSource resolves the participant list of a group chat.
type ParticipantSource interface {
	ChatParticipants(ctx context.Context, chatId string) ([]string, error)
}

// NotificationSink receives the recipients the router decided are not
// live in the room.
type NotificationSink interface {
	Dispatch(msg models.Message, recipientId string)
}

// Router validates inbound message and file events, broadcasts them to the
// target room, and hands absent recipients to the notification dispatcher.
// It keeps no state of its own; presence lives in the registry and room
// membership in the hub.
type Router struct {
	rooms        RoomBroadcaster
	oracle       *Oracle
	participants ParticipantSource
	notify       NotificationSink
}

func NewRouter(rooms RoomBroadcaster, oracle *Oracle, participants ParticipantSource, notify NotificationSink) *Router {
	return &Router{
		rooms:        rooms,
		oracle:       oracle,
		participants: participants,
		notify:       notify,
	}
}

// RouteMessage handles a sendMessage event. The returned error is a
// validation failure meant to be acknowledged to the sender; routing
// failures past validation are logged and swallowed.
func (r *Router) RouteMessage(ctx context.Context, msg models.Message) error {
	if msg.Text == "" {
		slog.Warn("[ROUTER] Dropping message without text", "room", msg.RoomId, "sender", msg.SenderId)
		return ErrMissingBody
	}
	return r.route(ctx, msg, models.EventNewMessage)
}

// RouteFile handles a sendFile event. Identical contract to RouteMessage
// with the opaque image payload in place of text.
func (r *Router) RouteFile(ctx context.Context, msg models.Message) error {
	if msg.Image == "" {
		slog.Warn("[ROUTER] Dropping file event without payload", "room", msg.RoomId, "sender", msg.SenderId)
		return ErrMissingPayload
	}
	return r.route(ctx, msg, models.EventNewFile)
}

func (r *Router) route(ctx context.Context, msg models.Message, eventType string) error {
	if err := r.validate(msg); err != nil {
		slog.Warn("[ROUTER] Dropping invalid message", "room", msg.RoomId, "sender", msg.SenderId, "error", err)
		return err
	}

	roomId := msg.RoomId.String()

	// Broadcast first. Absent recipients are evaluated afterwards; a
	// recipient joining the room in between may collect a spurious
	// notification, which is acceptable for an advisory signal.
	payload, err := json.Marshal(models.NewEvent(eventType, roomId, msg))
	if err != nil {
		slog.Error("[ROUTER] Failed to marshal broadcast frame", "room", roomId, "error", err)
		return nil
	}
	r.rooms.BroadcastToRoom(roomId, payload)
	slog.Info("[ROUTER] Broadcast", "type", eventType, "room", roomId, "sender", msg.SenderId, "chatType", msg.ChatType)

	for _, recipientId := range r.recipients(ctx, msg, roomId) {
		if r.oracle.IsUserInRoom(recipientId, roomId) {
			slog.Debug("[ROUTER] Recipient live in room, no notification", "recipient", recipientId, "room", roomId)
			continue
		}
		r.notify.Dispatch(msg, recipientId)
	}
	return nil
}

func (r *Router) validate(msg models.Message) error {
	if msg.RoomId == "" {
		return ErrMissingRoom
	}
	if msg.SenderId == "" {
		return ErrMissingSender
	}
	if !msg.ChatType.Valid() {
		return ErrUnknownChatType
	}
	return nil
}

// recipients computes who should be considered for a notification: the
// single receiver for direct and support chats, the full participant list
// minus the sender for group chats.
func (r *Router) recipients(ctx context.Context, msg models.Message, roomId string) []string {
	if msg.ChatType.Personal() {
		if msg.ReceiverId == "" {
			slog.Warn("[ROUTER] Personal chat message without receiverId, skipping notification", "room", roomId, "chatType", msg.ChatType)
			return nil
		}
		if msg.ReceiverId == msg.SenderId {
			return nil
		}
		return []string{msg.ReceiverId}
	}

	participants, err := r.participants.ChatParticipants(ctx, roomId)
	if err != nil {
		// Group notification degrades to a no-op; the broadcast already
		// happened.
		slog.Error("[ROUTER] Participants lookup failed, skipping group notifications", "room", roomId, "error", err)
		return nil
	}

	recipients := make([]string, 0, len(participants))
	for _, id := range participants {
		if id != msg.SenderId {
			recipients = append(recipients, id)
		}
	}
	return recipients
}
