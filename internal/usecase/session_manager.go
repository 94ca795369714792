package usecase

import (
	"context"
	"fmt"
	"time"

	"shorui-orchestrator/internal/domain"
)

// ErrSessionNotFound is returned when a session id resolves to nothing,
// including sessions whose TTL has lapsed.
var ErrSessionNotFound = fmt.Errorf("session not found")

// SessionManager owns the session lifecycle: creation, retrieval, TTL refresh
// on save, and message-count truncation so histories stay bounded.
type SessionManager struct {
	repo        domain.SessionRepository
	ttl         time.Duration
	maxMessages int
}

// NewSessionManager creates a manager. ttl and maxMessages fall back to one
// hour and fifty messages when non-positive.
func NewSessionManager(repo domain.SessionRepository, ttl time.Duration, maxMessages int) *SessionManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxMessages <= 0 {
		maxMessages = 50
	}
	return &SessionManager{repo: repo, ttl: ttl, maxMessages: maxMessages}
}

// Create stores a fresh session and returns its id.
func (m *SessionManager) Create(ctx context.Context, id string, metadata map[string]string) (string, error) {
	session := domain.NewSession(id, metadata)
	if err := m.repo.Save(ctx, session, m.ttl); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.ID, nil
}

// Get loads a session, refreshing its last-accessed timestamp.
func (m *SessionManager) Get(ctx context.Context, id string) (*domain.Session, error) {
	session, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	session.LastAccessed = time.Now().UTC()
	return session, nil
}

// Save persists a session, truncating to the newest maxMessages turns and
// resetting the TTL.
func (m *SessionManager) Save(ctx context.Context, session *domain.Session) error {
	if len(session.Messages) > m.maxMessages {
		session.Messages = session.Messages[len(session.Messages)-m.maxMessages:]
	}
	session.LastAccessed = time.Now().UTC()
	if err := m.repo.Save(ctx, session, m.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
