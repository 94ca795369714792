package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"shorui-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs ---

type stubJobRepo struct {
	mu       sync.Mutex
	jobs     []*domain.AnalysisJob // consumed FIFO by AcquireNext
	err      error
	statuses map[uuid.UUID]string
	errMsgs  map[uuid.UUID]*string
}

func newStubJobRepo(jobs ...*domain.AnalysisJob) *stubJobRepo {
	return &stubJobRepo{
		jobs:     jobs,
		statuses: map[uuid.UUID]string{},
		errMsgs:  map[uuid.UUID]*string{},
	}
}

func (s *stubJobRepo) Enqueue(ctx context.Context, job *domain.AnalysisJob) error { return nil }

func (s *stubJobRepo) AcquireNext(ctx context.Context) (*domain.AnalysisJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.jobs) == 0 {
		return nil, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	s.errMsgs[id] = errorMessage
	return nil
}

func (s *stubJobRepo) Get(ctx context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	return nil, nil
}

func (s *stubJobRepo) statusOf(id uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

type stubAnalyzer struct {
	mu         sync.Mutex
	calls      int
	transcript string
	projectID  string
	returnErr  error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, transcript, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.transcript = transcript
	s.projectID = projectID
	return s.returnErr
}

func makeJob() *domain.AnalysisJob {
	return &domain.AnalysisJob{
		ID:      uuid.New(),
		JobType: domain.JobTypeTranscriptAnalysis,
		Payload: map[string]interface{}{
			"transcript": "meeting notes",
			"project_id": "proj-1",
		},
		Status: domain.JobStatusProcessing,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestProcessNextJob_Success(t *testing.T) {
	job := makeJob()
	repo := newStubJobRepo(job)
	analyzer := &stubAnalyzer{}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()

	assert.Equal(t, domain.JobStatusCompleted, repo.statusOf(job.ID))
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, "meeting notes", analyzer.transcript)
	assert.Equal(t, "proj-1", analyzer.projectID)
	assert.Equal(t, time.Duration(0), w.backoff)
}

func TestProcessNextJob_AnalyzerFailure(t *testing.T) {
	job := makeJob()
	repo := newStubJobRepo(job)
	analyzer := &stubAnalyzer{returnErr: errors.New("compliance service down")}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()

	assert.Equal(t, domain.JobStatusFailed, repo.statusOf(job.ID))
	require.NotNil(t, repo.errMsgs[job.ID])
	assert.Contains(t, *repo.errMsgs[job.ID], "compliance service down")
	assert.Equal(t, initialBackoff, w.backoff)
}

func TestProcessNextJob_BackoffDoubles(t *testing.T) {
	repo := newStubJobRepo(makeJob(), makeJob(), makeJob())
	analyzer := &stubAnalyzer{returnErr: errors.New("still down")}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)
	w.processNextJob()
	assert.Equal(t, 2*initialBackoff, w.backoff)
	w.processNextJob()
	assert.Equal(t, 4*initialBackoff, w.backoff)
}

func TestProcessNextJob_BackoffResetsOnSuccess(t *testing.T) {
	repo := newStubJobRepo(makeJob(), makeJob())
	analyzer := &stubAnalyzer{returnErr: errors.New("transient")}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	analyzer.mu.Lock()
	analyzer.returnErr = nil
	analyzer.mu.Unlock()

	w.processNextJob()
	assert.Equal(t, time.Duration(0), w.backoff)
}

func TestProcessNextJob_UnknownJobType(t *testing.T) {
	job := makeJob()
	job.JobType = "mystery"
	repo := newStubJobRepo(job)
	analyzer := &stubAnalyzer{}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()

	assert.Equal(t, domain.JobStatusFailed, repo.statusOf(job.ID))
	assert.Equal(t, 0, analyzer.calls)
}

func TestProcessNextJob_MissingTranscript(t *testing.T) {
	job := makeJob()
	job.Payload = map[string]interface{}{"project_id": "proj-1"}
	repo := newStubJobRepo(job)
	analyzer := &stubAnalyzer{}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()

	assert.Equal(t, domain.JobStatusFailed, repo.statusOf(job.ID))
	assert.Equal(t, 0, analyzer.calls)
}

func TestProcessNextJob_EmptyQueueNoop(t *testing.T) {
	repo := newStubJobRepo()
	analyzer := &stubAnalyzer{}

	w := NewAnalysisWorker(repo, analyzer, testLogger())
	w.processNextJob()

	assert.Equal(t, 0, analyzer.calls)
}
