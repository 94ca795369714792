package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shorui-orchestrator/internal/domain"
	"shorui-orchestrator/internal/infra/logger"
)

// AnswerQuestionInput is one end-to-end grounded question.
type AnswerQuestionInput struct {
	Query      string
	ProjectID  string
	SessionID  string
	MinSources *int
}

// AnswerQuestionOutput carries the guard verdict plus the session the turn
// was appended to, if any.
type AnswerQuestionOutput struct {
	Result    *domain.AnswerResult
	SessionID string
}

// AnswerQuestionUsecase runs the full pipeline: retrieve evidence, generate
// a grounded answer or refusal, append the turn to the session, and record
// the audit event.
type AnswerQuestionUsecase interface {
	Execute(ctx context.Context, input AnswerQuestionInput) (*AnswerQuestionOutput, error)
}

type answerQuestionUsecase struct {
	retriever RetrieveRegulationsUsecase
	generator *GroundedGenerator
	sessions  *SessionManager
	audit     domain.AuditRepository
	logger    *slog.Logger

	retrievalLimit int
}

func NewAnswerQuestionUsecase(
	retriever RetrieveRegulationsUsecase,
	generator *GroundedGenerator,
	sessions *SessionManager,
	audit domain.AuditRepository,
	retrievalLimit int,
	logger *slog.Logger,
) AnswerQuestionUsecase {
	if retrievalLimit <= 0 {
		retrievalLimit = 10
	}
	return &answerQuestionUsecase{
		retriever:      retriever,
		generator:      generator,
		sessions:       sessions,
		audit:          audit,
		logger:         logger,
		retrievalLimit: retrievalLimit,
	}
}

func (u *answerQuestionUsecase) Execute(ctx context.Context, input AnswerQuestionInput) (*AnswerQuestionOutput, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	log := logger.FromContext(ctx, u.logger)

	retrieval, err := u.retriever.Execute(ctx, RetrieveRegulationsInput{
		Query:     input.Query,
		ProjectID: input.ProjectID,
		Limit:     u.retrievalLimit,
	})
	if err != nil {
		// Retrieval breaking down is a guard outcome, not a fault: refuse
		// rather than surface an internal error to the caller.
		log.Error("retrieval failed, refusing",
			slog.String("error", err.Error()),
			slog.String("project_id", input.ProjectID),
		)
		result := domain.Refusal(domain.RefusalCollectionNotFound)
		u.recordAudit(ctx, input, result)
		return &AnswerQuestionOutput{Result: result, SessionID: input.SessionID}, nil
	}

	result := u.generator.GenerateGrounded(ctx, input.Query, retrieval, input.MinSources)

	sessionID := input.SessionID
	if sessionID != "" {
		if err := u.appendTurn(ctx, sessionID, input.Query, result); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				log.Warn("session missing, answer returned without history",
					slog.String("session_id", sessionID))
			} else {
				log.Error("failed to append session turn",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	u.recordAudit(ctx, input, result)

	return &AnswerQuestionOutput{Result: result, SessionID: sessionID}, nil
}

func (u *answerQuestionUsecase) appendTurn(ctx context.Context, sessionID, query string, result *domain.AnswerResult) error {
	session, err := u.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	session.AppendMessage("user", query)
	session.AppendMessage("assistant", result.AnswerText)
	return u.sessions.Save(ctx, session)
}

func (u *answerQuestionUsecase) recordAudit(ctx context.Context, input AnswerQuestionInput, result *domain.AnswerResult) {
	if u.audit == nil {
		return
	}
	event := &domain.AuditEvent{
		SessionID:     input.SessionID,
		Query:         input.Query,
		RefusalReason: result.RefusalReason,
		Citations:     result.Citations,
		PromptVersion: PromptVersion,
		ModelVersion:  u.generator.BackendVersion(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := u.audit.Record(ctx, event); err != nil {
		u.logger.Error("failed to record audit event",
			slog.String("error", err.Error()))
	}
}
