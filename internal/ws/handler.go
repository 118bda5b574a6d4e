package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"chat-relay/internal/auth"
	"chat-relay/internal/presence"
)

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it with the hub. Identity and intent come from query parameters:
//
//	/ws?type=chat&userId=alice&roomId=42
//	/ws?type=notification&userId=alice
//
// userId is always required. Chat connections additionally require the
// room to join. When a validator is configured, a bearer token whose
// subject matches userId must accompany the request.
func ServeWS(hub *Hub, validator *auth.Validator, w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr
	query := r.URL.Query()

	userId := query.Get("userId")
	if userId == "" {
		slog.Warn("[WS] Connection without userId", "from", remoteAddr)
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	connType := ConnType(query.Get("type"))
	if !connType.Valid() {
		slog.Warn("[WS] Unknown connection type", "type", string(connType), "user", userId, "from", remoteAddr)
		http.Error(w, "type must be chat or notification", http.StatusBadRequest)
		return
	}

	roomId := query.Get("roomId")
	if connType == ConnChat && roomId == "" {
		slog.Warn("[WS] Chat connection without roomId", "user", userId, "from", remoteAddr)
		http.Error(w, "roomId required for chat connections", http.StatusBadRequest)
		return
	}

	if validator != nil {
		token := query.Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			slog.Warn("[WS] Token validation failed", "user", userId, "from", remoteAddr, "error", err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		if claims.Subject != userId {
			slog.Warn("[WS] Token subject mismatch", "user", userId, "subject", claims.Subject, "from", remoteAddr)
			http.Error(w, "Unauthorized: token subject mismatch", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("[WS] Failed to upgrade connection", "user", userId, "from", remoteAddr, "error", err)
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		id:       presence.ConnID(uuid.NewString()),
		userId:   userId,
		connType: connType,
		roomId:   roomId,
		rooms:    make(map[string]bool),
	}

	slog.Info("[WS] Connection upgraded", "user", userId, "conn", client.id, "type", connType, "room", roomId)
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
