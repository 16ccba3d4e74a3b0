// Package history provides the durable, append-only conversation log.
// Each sender's turns are totally ordered by the store-assigned id.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Role identifies who produced a turn. The wire values match the
// persisted schema.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "ai"
)

// Turn is one message in a sender's conversation. ID is assigned by the
// store on insert and strictly increases within a sender's history.
type Turn struct {
	ID        int64
	Sender    string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// ErrUnavailable reports that the backing store cannot be reached.
var ErrUnavailable = errors.New("history: store unavailable")

// Store is the conversation log. Append inserts one turn at the next
// position for the sender; Load returns the sender's turns in insertion
// order, empty if the sender is unknown. Turns are never mutated or
// deleted here.
type Store interface {
	Append(ctx context.Context, sender string, role Role, content string) error
	Load(ctx context.Context, sender string) ([]Turn, error)
	Close() error
}

// Backend selection lives in config; schema creation happens inside the
// constructors, once at process start.
type OpenConfig struct {
	Driver string
	Path   string
	DSN    string
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg OpenConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("history: unknown store driver %q", cfg.Driver)
	}
}
