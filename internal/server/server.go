package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/zoofam/mchili/internal/agent"
	"github.com/zoofam/mchili/internal/logger"
)

// Event is the inbound webhook payload for a received SMS.
type Event struct {
	DeviceID  string  `json:"deviceId"`
	Event     string  `json:"event"`
	ID        string  `json:"id"`
	WebhookID string  `json:"webhookId"`
	Payload   Payload `json:"payload"`
}

// Payload carries the message itself plus provider metadata. Everything
// except Message and PhoneNumber is an opaque pass-through.
type Payload struct {
	Message     string    `json:"message"`
	ReceivedAt  string    `json:"receivedAt"`
	MessageID   string    `json:"messageId"`
	PhoneNumber string    `json:"phoneNumber"`
	SimNumber   int       `json:"simNumber"`
	Thinking    *Thinking `json:"thinking,omitempty"`
}

type Thinking struct {
	Type string `json:"type"`
}

// Pipeline is the per-event processing the server delegates to.
type Pipeline interface {
	Process(ctx context.Context, phone, message string) (agent.Result, error)
}

// Server exposes the webhook over HTTP.
type Server struct {
	pipeline Pipeline
}

func New(pipeline Pipeline) *Server {
	return &Server{pipeline: pipeline}
}

// Handler returns the HTTP routes: the message webhook and a health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/message-received", s.handleMessageReceived)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleMessageReceived(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var evt Event
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload: " + err.Error()})
		return
	}

	requestID := uuid.NewString()
	start := time.Now()
	logger.L.Info("message received",
		"request_id", requestID,
		"event", evt.Event,
		"message_id", evt.Payload.MessageID,
		"sender", evt.Payload.PhoneNumber,
	)

	result, err := s.pipeline.Process(r.Context(), evt.Payload.PhoneNumber, evt.Payload.Message)
	if err != nil {
		status := http.StatusInternalServerError
		var pErr *agent.PipelineError
		if errors.As(err, &pErr) {
			status = pErr.Status
		}
		logger.L.Error("pipeline failed",
			"request_id", requestID,
			"status", status,
			"error", err,
		)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	logger.L.Info("message processed",
		"request_id", requestID,
		"sms_status", result.SMSStatus,
		"duration", time.Since(start),
	)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("write response failed", "error", err)
	}
}
