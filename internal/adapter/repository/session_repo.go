package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shorui-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a Postgres-backed session store. Expiry is
// enforced on read via the expires_at column; a periodic sweep can reclaim
// rows independently.
func NewSessionRepository(pool *pgxpool.Pool) domain.SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, messages, metadata, created_at, last_accessed
		FROM agent_sessions
		WHERE id = $1 AND expires_at > now()
	`
	var session domain.Session
	var messagesBytes, metadataBytes []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&messagesBytes,
		&metadataBytes,
		&session.CreatedAt,
		&session.LastAccessed,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal(messagesBytes, &session.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	if err := json.Unmarshal(metadataBytes, &session.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	messagesBytes, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	metadataBytes, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO agent_sessions (id, messages, metadata, created_at, last_accessed, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET messages = EXCLUDED.messages,
		    metadata = EXCLUDED.metadata,
		    last_accessed = EXCLUDED.last_accessed,
		    expires_at = EXCLUDED.expires_at
	`
	_, err = r.pool.Exec(ctx, query,
		session.ID,
		messagesBytes,
		metadataBytes,
		session.CreatedAt,
		session.LastAccessed,
		time.Now().UTC().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM agent_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
