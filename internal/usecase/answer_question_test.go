package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shorui-orchestrator/internal/domain"
	"shorui-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	result *domain.RetrievalResult
	err    error
}

func (s *stubRetriever) Execute(ctx context.Context, input usecase.RetrieveRegulationsInput) (*domain.RetrievalResult, error) {
	return s.result, s.err
}

type capturingAuditRepo struct {
	events []*domain.AuditEvent
	err    error
}

func (r *capturingAuditRepo) Record(ctx context.Context, event *domain.AuditEvent) error {
	r.events = append(r.events, event)
	return r.err
}

func newAnswerUsecase(t *testing.T, retriever usecase.RetrieveRegulationsUsecase, backend domain.GenerativeModel, audit domain.AuditRepository) (usecase.AnswerQuestionUsecase, *inMemorySessionRepo) {
	t.Helper()
	generator := usecase.NewGroundedGenerator(backend, usecase.GeneratorConfig{MinSources: 1}, testLogger())
	sessionRepo := newInMemorySessionRepo()
	sessions := usecase.NewSessionManager(sessionRepo, time.Hour, 50)
	return usecase.NewAnswerQuestionUsecase(retriever, generator, sessions, audit, 10, testLogger()), sessionRepo
}

func TestAnswerQuestion_SuccessRecordsAuditAndSession(t *testing.T) {
	backend := new(mockGenerativeModel)
	backend.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.GenerationResponse{Answer: "Exits stay clear [SOURCE: src-1].", Model: "m1"}, nil)

	retriever := &stubRetriever{result: retrievalWith(
		domain.RetrievalSource{SourceID: "src-1", ContentSnippet: "Exits must remain clear."},
	)}
	audit := &capturingAuditRepo{}
	uc, sessionRepo := newAnswerUsecase(t, retriever, backend, audit)

	session := domain.NewSession("sess-1", nil)
	require.NoError(t, sessionRepo.Save(context.Background(), session, time.Hour))

	output, err := uc.Execute(context.Background(), usecase.AnswerQuestionInput{
		Query:     "can exits be blocked?",
		ProjectID: "proj-1",
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.False(t, output.Result.IsRefusal())
	assert.Equal(t, []string{"src-1"}, output.Result.Citations)

	// Audit event captured the outcome
	require.Len(t, audit.events, 1)
	assert.Equal(t, "sess-1", audit.events[0].SessionID)
	assert.Empty(t, audit.events[0].RefusalReason)
	assert.Equal(t, []string{"src-1"}, audit.events[0].Citations)
	assert.Equal(t, usecase.PromptVersion, audit.events[0].PromptVersion)
	assert.Equal(t, "mock", audit.events[0].ModelVersion)

	// Both turns appended to the session
	saved, err := sessionRepo.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Len(t, saved.Messages, 2)
	assert.Equal(t, "user", saved.Messages[0].Role)
	assert.Equal(t, "assistant", saved.Messages[1].Role)
}

func TestAnswerQuestion_RetrievalFailureRefusesNotFaults(t *testing.T) {
	backend := new(mockGenerativeModel)
	retriever := &stubRetriever{err: errors.New("collection vanished")}
	audit := &capturingAuditRepo{}
	uc, _ := newAnswerUsecase(t, retriever, backend, audit)

	output, err := uc.Execute(context.Background(), usecase.AnswerQuestionInput{Query: "q", ProjectID: "proj-1"})
	require.NoError(t, err)
	assert.True(t, output.Result.IsRefusal())
	assert.Equal(t, domain.RefusalCollectionNotFound, output.Result.RefusalReason)
	assert.Equal(t, domain.RefusalText, output.Result.AnswerText)

	backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, audit.events, 1)
	assert.Equal(t, domain.RefusalCollectionNotFound, audit.events[0].RefusalReason)
}

func TestAnswerQuestion_MissingSessionStillAnswers(t *testing.T) {
	backend := new(mockGenerativeModel)
	backend.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.GenerationResponse{Answer: "Yes [SOURCE: src-1].", Model: "m1"}, nil)

	retriever := &stubRetriever{result: retrievalWith(
		domain.RetrievalSource{SourceID: "src-1", ContentSnippet: "snippet"},
	)}
	uc, _ := newAnswerUsecase(t, retriever, backend, &capturingAuditRepo{})

	output, err := uc.Execute(context.Background(), usecase.AnswerQuestionInput{
		Query:     "q",
		SessionID: "never-created",
	})
	require.NoError(t, err)
	assert.False(t, output.Result.IsRefusal())
}

func TestAnswerQuestion_EmptyQueryRejected(t *testing.T) {
	backend := new(mockGenerativeModel)
	uc, _ := newAnswerUsecase(t, &stubRetriever{}, backend, &capturingAuditRepo{})

	_, err := uc.Execute(context.Background(), usecase.AnswerQuestionInput{Query: ""})
	require.Error(t, err)
}

func TestAnswerQuestion_AuditFailureDoesNotBlockAnswer(t *testing.T) {
	backend := new(mockGenerativeModel)
	backend.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.GenerationResponse{Answer: "Yes [SOURCE: src-1].", Model: "m1"}, nil)

	retriever := &stubRetriever{result: retrievalWith(
		domain.RetrievalSource{SourceID: "src-1", ContentSnippet: "snippet"},
	)}
	audit := &capturingAuditRepo{err: errors.New("audit table missing")}
	uc, _ := newAnswerUsecase(t, retriever, backend, audit)

	output, err := uc.Execute(context.Background(), usecase.AnswerQuestionInput{Query: "q"})
	require.NoError(t, err)
	assert.False(t, output.Result.IsRefusal())
}
