package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/models"
)

func TestCreateNotificationPostsExpectedBody(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/notification", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.CreateNotification(context.Background(), "alice", "42", "bob", models.ChatDirect)
	require.NoError(t, err)

	assert.Equal(t, "42", got["chatId"])
	assert.Equal(t, "alice", got["senderId"])
	assert.Equal(t, "CHAT", got["type"])
	assert.Equal(t, "bob", got["userId"])
	assert.Equal(t, "direct", got["typeChat"])
	assert.NotEmpty(t, got["title"])
}

func TestCreateNotificationErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.CreateNotification(context.Background(), "alice", "42", "bob", models.ChatDirect)
	assert.Error(t, err)
}

func TestCreateNotificationUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	err := client.CreateNotification(context.Background(), "alice", "42", "bob", models.ChatDirect)
	assert.Error(t, err)
}

func TestChatParticipants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"participants":[{"id":"a","name":"Ana"},{"id":"b"},{"id":"c"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ids, err := client.ChatParticipants(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestChatParticipantsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"participants":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ids, err := client.ChatParticipants(context.Background(), "7")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestChatParticipantsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ChatParticipants(context.Background(), "7")
	assert.Error(t, err)
}
