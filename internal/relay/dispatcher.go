package relay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"

	"chat-relay/internal/models"
	"chat-relay/internal/presence"
)

// Notifier records a notification with the external backend.
type Notifier interface {
	CreateNotification(ctx context.Context, senderId, chatId, receiverId string, typeChat models.ChatType) error
}

// ConnectionPusher delivers a frame to a specific set of connections,
// wherever they are joined.
type ConnectionPusher interface {
	SendToConnections(conns []presence.ConnID, payload []byte)
}

// Dispatcher handles one absent recipient at a time: it fires the backend
// notification call as a detached task and pushes a newNotification event
// to every live connection the recipient still holds (a dashboard
// connection, for example, while their chat connection is closed).
//
// There is no retry and no deduplication; if the same message re-enters the
// router a second notification goes out. Exactly-once is the backend's
// problem, not this core's.
type Dispatcher struct {
	notifier Notifier
	conns    ConnectionSource
	push     ConnectionPusher
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, conns ConnectionSource, push ConnectionPusher) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		conns:    conns,
		push:     push,
	}
}

// Dispatch notifies recipientId about msg. The backend call is detached
// from the caller: its failure is logged, never propagated, and a
// connection closing mid-dispatch does not abort it. The HTTP client's own
// timeout bounds the wait.
func (d *Dispatcher) Dispatch(msg models.Message, recipientId string) {
	roomId := msg.RoomId.String()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.notifier.CreateNotification(context.Background(), msg.SenderId, roomId, recipientId, msg.ChatType); err != nil {
			slog.Error("[DISPATCH] Notification call failed", "recipient", recipientId, "room", roomId, "error", err)
			return
		}
		slog.Info("[DISPATCH] Notification recorded", "recipient", recipientId, "room", roomId, "chatType", msg.ChatType)
	}()

	conns := d.conns.ConnectionsOf(recipientId)
	if len(conns) == 0 {
		return
	}

	payload, err := json.Marshal(models.NewEvent(models.EventNewNotification, roomId, models.NotificationData{
		Message:  msg,
		ChatId:   roomId,
		SenderId: msg.SenderId,
	}))
	if err != nil {
		slog.Error("[DISPATCH] Failed to marshal notification frame", "recipient", recipientId, "room", roomId, "error", err)
		return
	}
	d.push.SendToConnections(conns, payload)
	slog.Debug("[DISPATCH] Pushed newNotification", "recipient", recipientId, "connections", len(conns), "room", roomId)
}

// Wait blocks until all detached notification calls have finished. Used at
// shutdown so in-flight calls are not torn down with the process.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
