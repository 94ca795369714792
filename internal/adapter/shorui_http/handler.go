package shorui_http

import (
	"net/http"

	"shorui-orchestrator/internal/domain"
	"shorui-orchestrator/internal/infra/logger"
	"shorui-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Handler struct {
	answerUsecase usecase.AnswerQuestionUsecase
	sessions      *usecase.SessionManager
	jobRepo       domain.AnalysisJobRepository
	answerLimiter *rate.Limiter
	readyCheck    func(echo.Context) error
}

func NewHandler(
	answerUsecase usecase.AnswerQuestionUsecase,
	sessions *usecase.SessionManager,
	jobRepo domain.AnalysisJobRepository,
	answerLimit rate.Limit,
	answerBurst int,
	readyCheck func(echo.Context) error,
) *Handler {
	if answerBurst <= 0 {
		answerBurst = 1
	}
	return &Handler{
		answerUsecase: answerUsecase,
		sessions:      sessions,
		jobRepo:       jobRepo,
		answerLimiter: rate.NewLimiter(answerLimit, answerBurst),
		readyCheck:    readyCheck,
	}
}

// Register mounts all routes on the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/answer", h.Answer)
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:id", h.GetSession)
	e.DELETE("/v1/sessions/:id", h.DeleteSession)
	e.POST("/v1/transcripts/analyze", h.AnalyzeTranscript)
	e.GET("/v1/jobs/:id", h.GetJob)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

type answerRequest struct {
	Query      string `json:"query"`
	ProjectID  string `json:"project_id"`
	SessionID  string `json:"session_id,omitempty"`
	MinSources *int   `json:"min_sources,omitempty"`
}

type answerResponse struct {
	Answer        string   `json:"answer"`
	Citations     []string `json:"citations"`
	Refused       bool     `json:"refused"`
	RefusalReason string   `json:"refusal_reason,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
}

// Answer runs one grounded question through the guard pipeline.
func (h *Handler) Answer(ctx echo.Context) error {
	if !h.answerLimiter.Allow() {
		return ctx.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	}

	var req answerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Query == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	rctx := ctx.Request().Context()
	if req.SessionID != "" {
		rctx = logger.WithSessionID(rctx, req.SessionID)
	}
	if req.ProjectID != "" {
		rctx = logger.WithProjectID(rctx, req.ProjectID)
	}

	output, err := h.answerUsecase.Execute(rctx, usecase.AnswerQuestionInput{
		Query:      req.Query,
		ProjectID:  req.ProjectID,
		SessionID:  req.SessionID,
		MinSources: req.MinSources,
	})
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	result := output.Result
	return ctx.JSON(http.StatusOK, answerResponse{
		Answer:        result.AnswerText,
		Citations:     result.Citations,
		Refused:       result.IsRefusal(),
		RefusalReason: result.RefusalReason,
		SessionID:     output.SessionID,
	})
}

type createSessionRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) CreateSession(ctx echo.Context) error {
	var req createSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	id, err := h.sessions.Create(ctx.Request().Context(), req.SessionID, req.Metadata)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handler) GetSession(ctx echo.Context) error {
	session, err := h.sessions.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if err == usecase.ErrSessionNotFound {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, session)
}

func (h *Handler) DeleteSession(ctx echo.Context) error {
	if err := h.sessions.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.NoContent(http.StatusNoContent)
}

type analyzeTranscriptRequest struct {
	Transcript string `json:"transcript"`
	ProjectID  string `json:"project_id"`
}

// AnalyzeTranscript enqueues a compliance analysis job for the worker; the
// caller polls /v1/jobs/:id for the outcome.
func (h *Handler) AnalyzeTranscript(ctx echo.Context) error {
	var req analyzeTranscriptRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Transcript == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "transcript is required"})
	}

	job := &domain.AnalysisJob{
		ID:      uuid.New(),
		JobType: domain.JobTypeTranscriptAnalysis,
		Payload: map[string]any{
			"transcript": req.Transcript,
			"project_id": req.ProjectID,
		},
		Status: domain.JobStatusNew,
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
		"status": job.Status,
	})
}

func (h *Handler) GetJob(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid job id"})
	}

	job, err := h.jobRepo.Get(ctx.Request().Context(), id)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if job == nil {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]any{
		"job_id": job.ID.String(),
		"status": job.Status,
	}
	if job.ErrorMessage != nil {
		resp["error_message"] = *job.ErrorMessage
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(ctx echo.Context) error {
	if h.readyCheck != nil {
		if err := h.readyCheck(ctx); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
