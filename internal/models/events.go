package models

import "time"

// Event names understood on the inbound side of a connection.
const (
	EventJoinChat    = "joinChat"
	EventSendMessage = "sendMessage"
	EventSendFile    = "sendFile"
)

// Event names emitted to connections.
const (
	EventJoinedRoom      = "joinedRoom"
	EventNewMessage      = "newMessage"
	EventNewFile         = "newFile"
	EventNewNotification = "newNotification"
	EventError           = "error"
)

// Event is the wire envelope for every frame exchanged with a client.
type Event struct {
	Type      string      `json:"type"`
	RoomId    string      `json:"roomId,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewEvent stamps an envelope with the current time.
func NewEvent(eventType, roomId string, data interface{}) Event {
	return Event{
		Type:      eventType,
		RoomId:    roomId,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}

// JoinRequest is the payload of a joinChat event.
type JoinRequest struct {
	RoomId RoomID `json:"roomId"`
}

// NotificationData is the payload of a newNotification event, pushed to a
// recipient's live connections outside the room the message landed in.
type NotificationData struct {
	Message  Message `json:"message"`
	ChatId   string  `json:"chatId"`
	SenderId string  `json:"senderId"`
}

// BroadcastMessage pairs a marshaled frame with the room it targets.
type BroadcastMessage struct {
	RoomId  string
	Payload []byte
}
