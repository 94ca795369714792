package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionMessage is a single turn in a conversation.
type SessionMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session holds the conversation history the agent platform keeps per user.
type Session struct {
	ID           string            `json:"id"`
	Messages     []SessionMessage  `json:"messages"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
}

// NewSession creates an empty session. A zero id gets a fresh UUID.
func NewSession(id string, metadata map[string]string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		Messages:     []SessionMessage{},
		Metadata:     metadata,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// AppendMessage adds a turn to the history.
func (s *Session) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, SessionMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}
