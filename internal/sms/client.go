package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/zoofam/mchili/internal/config"
)

// Sender relays one text message to one destination number. The returned
// pair is the gateway's HTTP status and raw response body; a non-2xx
// gateway answer is a reportable outcome, not an error. The error is
// non-nil only for transport failures.
type Sender interface {
	Send(ctx context.Context, text, phone string) (int, string, error)
}

// Client talks to an sms-gate style gateway with basic-auth credentials.
type Client struct {
	url        string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a gateway client. Credentials come from configuration
// and are never logged.
func NewClient(cfg config.SMSConfig) *Client {
	return &Client{
		url:      cfg.URL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type textMessage struct {
	Text string `json:"text"`
}

type sendRequest struct {
	TextMessage  textMessage `json:"textMessage"`
	PhoneNumbers []string    `json:"phoneNumbers"`
}

// Send formats text and posts it to the gateway for a single phone number.
func (c *Client) Send(ctx context.Context, text, phone string) (int, string, error) {
	payload, err := json.Marshal(sendRequest{
		TextMessage:  textMessage{Text: Format(text)},
		PhoneNumbers: []string{phone},
	})
	if err != nil {
		return 0, "", fmt.Errorf("sms: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("sms: create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("sms: gateway send: %w", err)
	}
	defer resp.Body.Close()

	// The gateway already answered; report its status with whatever body
	// could be read.
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), nil
}
