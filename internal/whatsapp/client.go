// Package whatsapp dispatches messages through a WPPConnect-compatible
// gateway. The endpoint comes from automation settings loaded per invocation,
// so the client holds only the HTTP transport.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crmleads_backend/platform/logger"
)

// Endpoint identifies the gateway a message is sent through.
type Endpoint struct {
	BaseURL   string
	APIKey    string
	SessionID string
}

// Client sends messages to the configured WhatsApp gateway.
type Client struct {
	http *http.Client
	log  *logger.Logger
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	IsGroup bool   `json:"isGroup"`
}

// NewClient creates a dispatch client.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// ChatID builds the gateway chat identifier for a digits-only phone.
func ChatID(phone string) string {
	return "55" + phone + "@c.us"
}

// SendMessage dispatches one message to a chat. A non-success response is an
// error carrying the response body text.
func (c *Client) SendMessage(ctx context.Context, ep Endpoint, chatID, message string) error {
	payload := sendRequest{
		Phone:   chatID,
		Message: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s/send-message", strings.TrimRight(ep.BaseURL, "/"), ep.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("whatsapp message dispatched", "chat", chatID, "session", ep.SessionID)
	return nil
}
