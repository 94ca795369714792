package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shorui-orchestrator/internal/domain"
	"shorui-orchestrator/internal/infra/logger"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	jobTimeout          = 5 * time.Minute
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// TranscriptAnalyzer submits a transcript to the compliance service and
// blocks until the downstream job reaches a terminal state.
type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, transcript, projectID string) error
}

// AnalysisWorker drains the analysis job queue. Failures back off
// exponentially so a misbehaving downstream does not get hammered.
type AnalysisWorker struct {
	jobRepo  domain.AnalysisJobRepository
	analyzer TranscriptAnalyzer
	logger   *slog.Logger
	stopChan chan struct{}
	backoff  time.Duration
}

func NewAnalysisWorker(
	jobRepo domain.AnalysisJobRepository,
	analyzer TranscriptAnalyzer,
	logger *slog.Logger,
) *AnalysisWorker {
	return &AnalysisWorker{
		jobRepo:  jobRepo,
		analyzer: analyzer,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (w *AnalysisWorker) Start() {
	w.logger.Info("Starting AnalysisWorker")
	go w.run()
}

func (w *AnalysisWorker) Stop() {
	w.logger.Info("Stopping AnalysisWorker")
	close(w.stopChan)
}

func (w *AnalysisWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *AnalysisWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNext(ctx)
	if err != nil {
		w.logger.Error("Failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	ctx = logger.WithJobID(ctx, job.ID.String())
	log := logger.FromContext(ctx, w.logger)
	log.Info("Processing job", "type", job.JobType)

	var processErr error

	switch job.JobType {
	case domain.JobTypeTranscriptAnalysis:
		processErr = w.processTranscriptAnalysis(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := domain.JobStatusCompleted
	var errMsg *string
	if processErr != nil {
		status = domain.JobStatusFailed
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		log.Warn("Worker backing off", "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		log.Info("Job completed")
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		log.Error("Failed to update job status", "error", err)
	}
}

func (w *AnalysisWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *AnalysisWorker) processTranscriptAnalysis(ctx context.Context, job *domain.AnalysisJob) error {
	transcript, ok := job.Payload["transcript"].(string)
	if !ok || transcript == "" {
		return fmt.Errorf("missing or invalid transcript")
	}
	projectID, _ := job.Payload["project_id"].(string)

	if err := w.analyzer.Analyze(ctx, transcript, projectID); err != nil {
		return fmt.Errorf("transcript analysis failed: %w", err)
	}
	return nil
}
