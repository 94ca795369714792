package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"shorui-orchestrator/internal/adapter/inference"
	"shorui-orchestrator/internal/adapter/repository"
	"shorui-orchestrator/internal/adapter/shorui_http"
	"shorui-orchestrator/internal/infra"
	"shorui-orchestrator/internal/infra/config"
	"shorui-orchestrator/internal/infra/logger"
	"shorui-orchestrator/internal/infra/otel"
	"shorui-orchestrator/internal/usecase"
	"shorui-orchestrator/internal/worker"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Initialize Telemetry
	otelShutdown, err := otel.InitProvider(context.Background(), otel.Config{
		ServiceName:    "shorui-orchestrator",
		ServiceVersion: os.Getenv("SERVICE_VERSION"),
		Environment:    cfg.Env,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    0.1,
	})
	if err != nil {
		slog.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(ctx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// 3. Initialize Logger
	log := logger.NewWithOTel(cfg.OTelEnabled)
	slog.SetDefault(log)

	// 4. Initialize DB
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	dbPool, err := infra.NewPostgresDB(context.Background(), dsn)
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 5. Initialize Adapters
	chunkRepo := repository.NewRegulationChunkRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	jobRepo := repository.NewAnalysisJobRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	generator := inference.NewOpenAIGenerator(cfg.InferenceURL, cfg.InferenceModel, cfg.InferenceAPIKey)
	embedder := inference.NewOpenAIEmbedder(cfg.EmbeddingURL, cfg.EmbeddingModel, cfg.InferenceAPIKey, 30)
	complianceClient := shorui_http.NewComplianceClient(cfg.ComplianceURL, 60)

	// 6. Initialize Usecases
	retrieveUsecase := usecase.NewRetrieveRegulationsUsecase(chunkRepo, embedder, log)
	groundedGenerator := usecase.NewGroundedGenerator(
		generator,
		usecase.GeneratorConfig{
			MinSources:       cfg.MinSources,
			RequireCitations: cfg.RequireCitations,
			StrictCitations:  cfg.StrictCitations,
		},
		log,
		usecase.WithAnswerCache(cfg.AnswerCacheSize, time.Duration(cfg.AnswerCacheTTL)*time.Minute),
	)
	sessionManager := usecase.NewSessionManager(
		sessionRepo,
		time.Duration(cfg.SessionTTL)*time.Second,
		cfg.SessionMaxMessages,
	)
	answerUsecase := usecase.NewAnswerQuestionUsecase(
		retrieveUsecase,
		groundedGenerator,
		sessionManager,
		auditRepo,
		cfg.RetrievalLimit,
		log,
	)

	// 7. Initialize & Start Worker
	poller := shorui_http.NewJobPoller(complianceClient, log)
	analyzer := shorui_http.NewComplianceAnalyzer(complianceClient, poller, log)
	analysisWorker := worker.NewAnalysisWorker(jobRepo, analyzer, log)
	analysisWorker.Start()
	defer func() {
		log.Info("Stopping worker...")
		analysisWorker.Stop()
	}()

	// 8. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	answerLimit := rate.Limit(cfg.AnswerRateLimit)
	if cfg.AnswerRateLimit <= 0 {
		answerLimit = rate.Inf
	}
	handler := shorui_http.NewHandler(
		answerUsecase,
		sessionManager,
		jobRepo,
		answerLimit,
		cfg.AnswerRateBurst,
		func(c echo.Context) error {
			return dbPool.Ping(c.Request().Context())
		},
	)
	handler.Register(e)

	// 9. Start Server (h2c so internal callers can use HTTP/2 without TLS)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(e, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
}
