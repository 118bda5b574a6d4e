package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/auth"
	"chat-relay/internal/models"
	"chat-relay/internal/presence"
)

func newHandlerServer(t *testing.T, validator *auth.Validator) (*httptest.Server, *presence.Registry) {
	t.Helper()
	registry := presence.NewRegistry()
	hub := NewHub(registry, NopPublisher{})
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, validator, w, r)
	}))
	t.Cleanup(server.Close)
	return server, registry
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
}

func handlerToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestServeWSRejectsBadHandshakes(t *testing.T) {
	server, _ := newHandlerServer(t, nil)

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing userId", query: "type=chat&roomId=42"},
		{name: "missing type", query: "userId=alice&roomId=42"},
		{name: "unknown type", query: "type=carrier-pigeon&userId=alice"},
		{name: "chat without roomId", query: "type=chat&userId=alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/ws?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServeWSRequiresTokenWhenValidatorConfigured(t *testing.T) {
	server, _ := newHandlerServer(t, auth.NewValidator("secret"))

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing token", query: "type=notification&userId=alice"},
		{name: "garbage token", query: "type=notification&userId=alice&token=not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/ws?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestServeWSRejectsTokenSubjectMismatch(t *testing.T) {
	server, _ := newHandlerServer(t, auth.NewValidator("secret"))
	token := handlerToken(t, "secret", "bob")

	resp, err := http.Get(server.URL + "/ws?type=notification&userId=alice&token=" + token)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeWSUpgradesAndRegisters(t *testing.T) {
	server, registry := newHandlerServer(t, nil)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "type=chat&userId=alice&roomId=42"), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The join ack arrives once the connection is registered and in the room
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.Event
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, models.EventJoinedRoom, event.Type)
	assert.Equal(t, "42", event.RoomId)
	assert.Equal(t, 1, registry.ConnectionCount("alice"))

	conn.Close()
	assert.Eventually(t, func() bool {
		return registry.ConnectionCount("alice") == 0
	}, 2*time.Second, 10*time.Millisecond, "close must deregister the connection")
}

func TestServeWSAcceptsMatchingToken(t *testing.T) {
	server, registry := newHandlerServer(t, auth.NewValidator("secret"))
	token := handlerToken(t, "secret", "alice")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "type=notification&userId=alice&token="+token), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return registry.ConnectionCount("alice") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWSAcceptsBearerHeader(t *testing.T) {
	server, registry := newHandlerServer(t, auth.NewValidator("secret"))
	header := http.Header{"Authorization": []string{"Bearer " + handlerToken(t, "secret", "alice")}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "type=notification&userId=alice"), header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	assert.Eventually(t, func() bool {
		return registry.ConnectionCount("alice") == 1
	}, 2*time.Second, 10*time.Millisecond)
}
