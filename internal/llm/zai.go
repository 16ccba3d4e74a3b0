package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zoofam/mchili/internal/config"
	"github.com/zoofam/mchili/internal/history"
	"github.com/zoofam/mchili/internal/logger"
)

// ZaiClient completes against a z.ai style chat endpoint. It is
// hand-rolled rather than SDK-backed so the request can carry the
// thinking-disabled field the endpoint understands.
type ZaiClient struct {
	cfg        config.LLMConfig
	httpClient *http.Client
}

// NewZai creates the client with a bounded request timeout.
func NewZai(cfg config.LLMConfig) *ZaiClient {
	return &ZaiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type thinking struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	Thinking    *thinking `json:"thinking,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ZaiClient) Complete(ctx context.Context, input string, turns []history.Turn) (string, error) {
	messages := make([]message, 0, len(turns)+2)
	messages = append(messages, message{Role: "system", Content: c.cfg.SystemPrompt})
	for _, t := range turns {
		messages = append(messages, message{Role: providerRole(t.Role), Content: t.Content})
	}
	messages = append(messages, message{Role: "user", Content: input})

	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	if c.cfg.DisableThinking {
		reqBody.Thinking = &thinking{Type: "disabled"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("completion marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("completion create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("completion read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.L.Warn("unparsable completion response, using fallback reply", "error", err)
		return Fallback, nil
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		logger.L.Warn("completion response missing reply content, using fallback reply")
		return Fallback, nil
	}
	return parsed.Choices[0].Message.Content, nil
}
