package shorui_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shorui-orchestrator/internal/infra/httpclient"
)

// ComplianceClient talks to the compliance analysis service that evaluates
// meeting transcripts against indexed regulations.
type ComplianceClient struct {
	BaseURL string
	Client  *http.Client
}

func NewComplianceClient(baseURL string, timeoutSeconds int) *ComplianceClient {
	timeout := 60 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &ComplianceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  httpclient.NewPooledClient(timeout),
	}
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	ProjectID  string `json:"project_id"`
}

// AnalyzeAck is the compliance service's acknowledgement of a submitted
// transcript.
type AnalyzeAck struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// AnalyzeTranscript submits a transcript for asynchronous compliance
// analysis and returns the job id to poll.
func (c *ComplianceClient) AnalyzeTranscript(ctx context.Context, transcript, projectID string) (*AnalyzeAck, error) {
	payload, err := json.Marshal(analyzeRequest{Transcript: transcript, ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/transcripts/analyze", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("analyze returned %d: %s", resp.StatusCode, string(body))
	}

	var ack AnalyzeAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("failed to decode analyze response: %w", err)
	}
	return &ack, nil
}

// TranscriptJobStatus reports the current state of a compliance analysis job.
func (c *ComplianceClient) TranscriptJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	url := fmt.Sprintf("%s/v1/jobs/%s", c.BaseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status returned: %d", resp.StatusCode)
	}

	var status JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}
