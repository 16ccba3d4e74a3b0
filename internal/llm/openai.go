package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/zoofam/mchili/internal/config"
	"github.com/zoofam/mchili/internal/history"
)

// OpenAIClient completes against any OpenAI-compatible endpoint via the
// go-openai SDK.
type OpenAIClient struct {
	api *openai.Client
	cfg config.LLMConfig
}

// NewOpenAI creates the SDK-backed client with a bounded request timeout.
func NewOpenAI(cfg config.LLMConfig) *OpenAIClient {
	sdkCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	sdkCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &OpenAIClient{
		api: openai.NewClientWithConfig(sdkCfg),
		cfg: cfg,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, input string, turns []history.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.cfg.SystemPrompt,
	})
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    providerRole(t.Role),
			Content: t.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: input,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &StatusError{Code: apiErr.HTTPStatusCode, Body: apiErr.Message}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", &StatusError{Code: reqErr.HTTPStatusCode, Body: string(reqErr.Body)}
		}
		return "", fmt.Errorf("completion request: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Fallback, nil
	}
	return resp.Choices[0].Message.Content, nil
}
