package shorui_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"shorui-orchestrator/internal/infra/httpclient"
)

// IngestionClient talks to the document ingestion service that chunks,
// embeds, and indexes regulation documents.
type IngestionClient struct {
	BaseURL string
	Client  *http.Client
}

func NewIngestionClient(baseURL string, timeoutSeconds int) *IngestionClient {
	timeout := 60 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &IngestionClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  httpclient.NewPooledClient(timeout),
	}
}

// UploadResult is the ingestion service's acknowledgement of an upload.
type UploadResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Filename string `json:"filename"`
}

// JobStatus describes the progress of an ingestion or analysis job.
type JobStatus struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Result       any    `json:"result,omitempty"`
}

// UploadDocument submits a regulation document for ingestion. The file
// travels as a multipart form together with its routing metadata.
func (c *IngestionClient) UploadDocument(ctx context.Context, filename string, content io.Reader, projectID, documentType, category string) (*UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.WriteField("project_id", projectID); err != nil {
		return nil, fmt.Errorf("failed to write project_id field: %w", err)
	}
	if documentType != "" {
		if err := writer.WriteField("document_type", documentType); err != nil {
			return nil, fmt.Errorf("failed to write document_type field: %w", err)
		}
	}
	if category != "" {
		if err := writer.WriteField("category", category); err != nil {
			return nil, fmt.Errorf("failed to write category field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/v1/documents/upload", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload returned %d: %s", resp.StatusCode, string(body))
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}

// CheckStatus reports the current state of an ingestion job.
func (c *IngestionClient) CheckStatus(ctx context.Context, jobID string) (*JobStatus, error) {
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

// Health checks the ingestion service's health endpoint.
func (c *IngestionClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/healthz", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned: %d", resp.StatusCode)
	}
	return nil
}
