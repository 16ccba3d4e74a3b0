package llm

import (
	"context"
	"fmt"

	"github.com/zoofam/mchili/internal/history"
)

// Client produces one assistant reply from the new input plus the
// sender's prior turns. Implementations are stateless; conversation
// memory lives entirely in the history store.
type Client interface {
	Complete(ctx context.Context, input string, turns []history.Turn) (string, error)
}

// Fallback is returned with a nil error when the completion service
// answers successfully but the reply cannot be extracted from the body.
// The pipeline persists and relays it like any normal reply so the
// conversational turn is not lost.
const Fallback = "Sorry, I couldn't generate a reply."

// StatusError reports a non-success response from the completion
// service, carrying the upstream status and raw body for diagnostics.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion bad status %d: %s", e.Code, e.Body)
}

// providerRole maps a stored role onto the chat-completion wire role.
// Unknown values default to "user".
func providerRole(r history.Role) string {
	switch r {
	case history.RoleHuman:
		return "user"
	case history.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}
