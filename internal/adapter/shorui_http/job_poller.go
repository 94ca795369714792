package shorui_http

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 60
)

// Terminal job states reported by downstream services.
const (
	pollStatusCompleted = "completed"
	pollStatusFailed    = "failed"
)

// StatusChecker reports the state of an asynchronous downstream job.
type StatusChecker interface {
	TranscriptJobStatus(ctx context.Context, jobID string) (*JobStatus, error)
}

// JobPoller polls a downstream job until it reaches a terminal state or the
// attempt budget runs out. Transient poll errors consume an attempt and are
// retried rather than aborting the poll.
type JobPoller struct {
	checker     StatusChecker
	interval    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

func NewJobPoller(checker StatusChecker, logger *slog.Logger) *JobPoller {
	return &JobPoller{
		checker:     checker,
		interval:    defaultPollInterval,
		maxAttempts: defaultMaxAttempts,
		logger:      logger,
	}
}

// WithInterval overrides the poll cadence. Used by tests and the CLI.
func (p *JobPoller) WithInterval(interval time.Duration, maxAttempts int) *JobPoller {
	if interval > 0 {
		p.interval = interval
	}
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	return p
}

// Wait blocks until the job completes, fails, the budget is exhausted, or
// ctx is cancelled. A failed job is returned with its status, not an error;
// the error return covers polling itself breaking down.
func (p *JobPoller) Wait(ctx context.Context, jobID string) (*JobStatus, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, err := p.checker.TranscriptJobStatus(ctx, jobID)
		if err != nil {
			p.logger.Warn("job status poll failed",
				slog.String("job_id", jobID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		} else if status.Status == pollStatusCompleted || status.Status == pollStatusFailed {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return nil, fmt.Errorf("analysis timed out: job %s did not complete within %d attempts", jobID, p.maxAttempts)
}
