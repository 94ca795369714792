package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// RegulationChunk is a persisted, embedded fragment of an indexed regulation
// document.
type RegulationChunk struct {
	ID        uuid.UUID
	ProjectID string
	Filename  string
	PageNum   string
	BlockID   string
	SectionID string
	Content   string
	Embedding pgvector.Vector
	CreatedAt time.Time
}

// ChunkSearchResult pairs a chunk with its similarity score for one query.
type ChunkSearchResult struct {
	Chunk RegulationChunk
	Score float64
}

// RegulationChunkRepository abstracts vector search over indexed regulations.
// ExpandReferences returns chunks reachable through cross-reference links of
// the given chunks; callers must treat those as the less-trusted graph class.
type RegulationChunkRepository interface {
	Search(ctx context.Context, embedding pgvector.Vector, projectID string, limit int) ([]ChunkSearchResult, error)
	ExpandReferences(ctx context.Context, chunkIDs []uuid.UUID, limit int) ([]ChunkSearchResult, error)
}

// SessionRepository provides get / set-with-TTL / delete semantics for agent
// sessions. Get returns (nil, nil) for missing or expired sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// AnalysisJobRepository is the Postgres-backed queue feeding the worker.
// AcquireNext atomically claims the oldest new job, returning (nil, nil) when
// the queue is empty.
type AnalysisJobRepository interface {
	Enqueue(ctx context.Context, job *AnalysisJob) error
	AcquireNext(ctx context.Context) (*AnalysisJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
	Get(ctx context.Context, id uuid.UUID) (*AnalysisJob, error)
}

// AuditEvent records one grounded-generation outcome for compliance review.
type AuditEvent struct {
	ID            uuid.UUID
	SessionID     string
	Query         string
	RefusalReason string
	Citations     []string
	PromptVersion string
	ModelVersion  string
	CreatedAt     time.Time
}

// AuditRepository persists generation outcomes. Writes are best-effort from
// the caller's perspective but failures must be surfaced for logging.
type AuditRepository interface {
	Record(ctx context.Context, event *AuditEvent) error
}
