package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zoofam/mchili/internal/config"
	"github.com/zoofam/mchili/internal/history"
)

func zaiClientFor(url string) *ZaiClient {
	return NewZai(config.LLMConfig{
		BaseURL:         url,
		APIKey:          "test-key",
		Model:           "test-model",
		SystemPrompt:    "You are a test assistant.",
		MaxTokens:       512,
		Temperature:     0.7,
		DisableThinking: true,
		Timeout:         2 * time.Second,
	})
}

func TestZaiClient_BuildsMessageList(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"yo back"}}]}`))
	}))
	defer srv.Close()

	turns := []history.Turn{
		{Role: history.RoleHuman, Content: "hi"},
		{Role: history.RoleAssistant, Content: "yo"},
		{Role: history.Role("other"), Content: "x"},
	}
	reply, err := zaiClientFor(srv.URL).Complete(context.Background(), "new input", turns)
	require.NoError(t, err)
	require.Equal(t, "yo back", reply)

	require.Equal(t, "test-model", got.Model)
	require.Equal(t, 512, got.MaxTokens)
	require.NotNil(t, got.Thinking)
	require.Equal(t, "disabled", got.Thinking.Type)

	require.Equal(t, []message{
		{Role: "system", Content: "You are a test assistant."},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "yo"},
		{Role: "user", Content: "x"},
		{Role: "user", Content: "new input"},
	}, got.Messages)
}

func TestZaiClient_EmptyHistory(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"first contact"}}]}`))
	}))
	defer srv.Close()

	reply, err := zaiClientFor(srv.URL).Complete(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Equal(t, "first contact", reply)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "user", got.Messages[1].Role)
}

func TestZaiClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	_, err := zaiClientFor(srv.URL).Complete(context.Background(), "hello", nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	require.Contains(t, statusErr.Body, "rate limited")
}

func TestZaiClient_UnparsableBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	reply, err := zaiClientFor(srv.URL).Complete(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Equal(t, Fallback, reply)
}

func TestZaiClient_MissingReplyFieldFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	reply, err := zaiClientFor(srv.URL).Complete(context.Background(), "hello", nil)
	require.NoError(t, err)
	require.Equal(t, Fallback, reply)
}

func TestProviderRole(t *testing.T) {
	require.Equal(t, "user", providerRole(history.RoleHuman))
	require.Equal(t, "assistant", providerRole(history.RoleAssistant))
	require.Equal(t, "user", providerRole(history.Role("whatever")))
}

func TestNew_SelectsProvider(t *testing.T) {
	c, err := New(config.LLMConfig{Provider: "zai"})
	require.NoError(t, err)
	require.IsType(t, &ZaiClient{}, c)

	c, err = New(config.LLMConfig{Provider: "openai"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, c)

	_, err = New(config.LLMConfig{Provider: "bedrock"})
	require.Error(t, err)
}
