package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists turns in a server-grade relational database
// behind a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database named by dsn, verifies the
// connection and ensures the conversations table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history: parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS conversations (
		id BIGSERIAL PRIMARY KEY,
		phone_number TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	if _, err := pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_conversations_phone ON conversations(phone_number);`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Append(ctx context.Context, sender string, role Role, content string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (phone_number, role, content) VALUES ($1, $2, $3);`,
		sender, string(role), content)
	if err != nil {
		return fmt.Errorf("history: insert turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sender string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, phone_number, role, content, created_at FROM conversations
		 WHERE phone_number = $1 ORDER BY id ASC;`, sender)
	if err != nil {
		return nil, fmt.Errorf("history: load turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var role string
		if err := rows.Scan(&t.ID, &t.Sender, &role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan turn: %w", err)
		}
		t.Role = Role(role)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: load turns: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
