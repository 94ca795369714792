package shorui_http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChecker struct {
	responses []pollResponse
	calls     int
}

type pollResponse struct {
	status *JobStatus
	err    error
}

func (s *scriptedChecker) TranscriptJobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	r := s.responses[idx]
	return r.status, r.err
}

func pollerWith(checker StatusChecker, maxAttempts int) *JobPoller {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewJobPoller(checker, logger).WithInterval(time.Millisecond, maxAttempts)
}

func TestJobPoller_CompletedTerminal(t *testing.T) {
	checker := &scriptedChecker{responses: []pollResponse{
		{status: &JobStatus{JobID: "job-1", Status: "processing"}},
		{status: &JobStatus{JobID: "job-1", Status: "completed"}},
	}}

	status, err := pollerWith(checker, 10).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 2, checker.calls)
}

func TestJobPoller_FailedIsTerminalNotError(t *testing.T) {
	checker := &scriptedChecker{responses: []pollResponse{
		{status: &JobStatus{JobID: "job-1", Status: "failed", ErrorMessage: "analysis crashed"}},
	}}

	status, err := pollerWith(checker, 10).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, "analysis crashed", status.ErrorMessage)
}

func TestJobPoller_TransientErrorsRetried(t *testing.T) {
	checker := &scriptedChecker{responses: []pollResponse{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
		{status: &JobStatus{JobID: "job-1", Status: "completed"}},
	}}

	status, err := pollerWith(checker, 10).Wait(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 3, checker.calls)
}

func TestJobPoller_BudgetExhaustedTimesOut(t *testing.T) {
	checker := &scriptedChecker{responses: []pollResponse{
		{status: &JobStatus{JobID: "job-1", Status: "processing"}},
	}}

	_, err := pollerWith(checker, 3).Wait(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, 3, checker.calls)
}

func TestJobPoller_ContextCancellation(t *testing.T) {
	checker := &scriptedChecker{responses: []pollResponse{
		{status: &JobStatus{JobID: "job-1", Status: "processing"}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pollerWith(checker, 10).Wait(ctx, "job-1")
	require.ErrorIs(t, err, context.Canceled)
}
