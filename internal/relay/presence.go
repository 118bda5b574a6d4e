// Package relay implements the presence-and-routing core: deciding which
// live connections receive a message and which users need an out-of-band
// notification instead.
package relay

import "chat-relay/internal/presence"

// ConnectionSource exposes the connection registry to the relay.
type ConnectionSource interface {
	ConnectionsOf(userId string) []presence.ConnID
}

// RoomMembership answers whether a single connection is currently joined to
// a room. Membership is owned by the transport hub, not duplicated here.
type RoomMembership interface {
	InRoom(roomId string, conn presence.ConnID) bool
}

// Oracle derives user-level presence from per-connection state. A user is
// present in a room iff at least one of their connections is a member of
// it; a user holding a notification connection and a separate chat
// connection counts as present through either.
type Oracle struct {
	conns ConnectionSource
	rooms RoomMembership
}

func NewOracle(conns ConnectionSource, rooms RoomMembership) *Oracle {
	return &Oracle{conns: conns, rooms: rooms}
}

func (o *Oracle) IsUserInRoom(userId, roomId string) bool {
	for _, conn := range o.conns.ConnectionsOf(userId) {
		if o.rooms.InRoom(roomId, conn) {
			return true
		}
	}
	return false
}
