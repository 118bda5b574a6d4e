// Package api is the HTTP client for the backend chat/notification service.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"chat-relay/internal/models"
)

const requestTimeout = 10 * time.Second

// Client talks to the backend REST API that persists notifications and owns
// the chat/participant store.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type notificationRequest struct {
	Title    string `json:"title"`
	ChatId   string `json:"chatId"`
	SenderId string `json:"senderId"`
	Type     string `json:"type"`
	UserId   string `json:"userId"`
	TypeChat string `json:"typeChat"`
}

type participant struct {
	Id string `json:"id"`
}

type chatResponse struct {
	Participants []participant `json:"participants"`
}

// CreateNotification records a push notification for receiverId. Best
// effort: the backend's response body is discarded, only the status code is
// checked.
func (c *Client) CreateNotification(ctx context.Context, senderId, chatId, receiverId string, typeChat models.ChatType) error {
	body, err := json.Marshal(notificationRequest{
		Title:    "You have received a new message",
		ChatId:   chatId,
		SenderId: senderId,
		Type:     "CHAT",
		UserId:   receiverId,
		TypeChat: string(typeChat),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/notification", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("post notification: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ChatParticipants returns the user ids participating in chatId, used for
// group notification fan-out.
func (c *Client) ChatParticipants(ctx context.Context, chatId string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chat?id="+url.QueryEscape(chatId), nil)
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("get chat: unexpected status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}

	ids := make([]string, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		ids = append(ids, p.Id)
	}
	return ids, nil
}
