package domain

import (
	"time"

	"github.com/google/uuid"
)

// Analysis job lifecycle states. "completed" and "failed" are terminal.
const (
	JobStatusNew        = "new"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobTypeTranscriptAnalysis routes a job to the compliance service.
const JobTypeTranscriptAnalysis = "transcript_analysis"

// AnalysisJob is a queued transcript-analysis request handed to the
// compliance service by the background worker.
type AnalysisJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]any
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
