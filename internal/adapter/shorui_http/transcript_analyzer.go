package shorui_http

import (
	"context"
	"fmt"
	"log/slog"
)

// ComplianceAnalyzer submits transcripts to the compliance service and waits
// for the downstream job to finish. It is the worker's view of the service.
type ComplianceAnalyzer struct {
	client *ComplianceClient
	poller *JobPoller
	logger *slog.Logger
}

func NewComplianceAnalyzer(client *ComplianceClient, poller *JobPoller, logger *slog.Logger) *ComplianceAnalyzer {
	return &ComplianceAnalyzer{
		client: client,
		poller: poller,
		logger: logger,
	}
}

// Analyze submits the transcript and blocks until the downstream job reaches
// a terminal state or the poll budget runs out.
func (a *ComplianceAnalyzer) Analyze(ctx context.Context, transcript, projectID string) error {
	ack, err := a.client.AnalyzeTranscript(ctx, transcript, projectID)
	if err != nil {
		return fmt.Errorf("failed to submit transcript: %w", err)
	}

	a.logger.Info("transcript submitted",
		slog.String("job_id", ack.JobID),
		slog.String("project_id", projectID),
	)

	status, err := a.poller.Wait(ctx, ack.JobID)
	if err != nil {
		return err
	}
	if status.Status == pollStatusFailed {
		return fmt.Errorf("analysis failed: %s", status.ErrorMessage)
	}
	return nil
}
