package models

import (
	"github.com/goccy/go-json"
)

// ChatType discriminates how a message's notification recipients are chosen.
type ChatType string

const (
	ChatDirect  ChatType = "direct"
	ChatSupport ChatType = "support"
	ChatGroup   ChatType = "group"
)

// Valid reports whether t is one of the known chat types.
func (t ChatType) Valid() bool {
	switch t {
	case ChatDirect, ChatSupport, ChatGroup:
		return true
	}
	return false
}

// Personal reports whether the chat addresses a single receiver rather than
// a participant list.
func (t ChatType) Personal() bool {
	return t == ChatDirect || t == ChatSupport
}

// RoomID is a room identifier in canonical string form. Clients may address
// rooms with either a JSON string or a JSON number; both decode to the same
// canonical value.
type RoomID string

func (r RoomID) String() string { return string(r) }

func (r *RoomID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RoomID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = RoomID(n.String())
	return nil
}

// Message is a chat or file-transfer event addressed to a room. Text carries
// the body for chat messages, Image the opaque payload for file transfers.
// ReceiverId is only meaningful for direct and support chats.
type Message struct {
	RoomId     RoomID   `json:"roomId"`
	Text       string   `json:"text,omitempty"`
	Image      string   `json:"image,omitempty"`
	SenderId   string   `json:"senderId"`
	ReceiverId string   `json:"receiverId,omitempty"`
	ChatType   ChatType `json:"chatType"`
}
