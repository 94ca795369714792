package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shorui-orchestrator/internal/adapter/shorui_http"
)

var (
	version = "dev"

	// Global flags
	verbose      bool
	ingestionURL string

	// Upload command flags
	projectID    string
	documentType string
	category     string
	wait         bool
	pollInterval time.Duration
	maxAttempts  int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ingestctl",
	Short:   "Submit regulation documents for ingestion and track their jobs",
	Version: version,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a regulation document for indexing",
	Long: `Upload a regulation document to the ingestion service.

The document is chunked, embedded, and indexed asynchronously; the command
prints the job id to poll. With --wait the command polls until the job
completes or fails.

Examples:
  # Submit a document and exit
  ingestctl upload fire-code.pdf --project proj-1

  # Submit and block until indexing finishes
  ingestctl upload fire-code.pdf --project proj-1 --wait`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the status of an ingestion job",
	Args:  cobra.ExactArgs(1),
	RunE:  showStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&ingestionURL, "ingestion-url", "", "ingestion service URL (defaults to INGESTION_SERVICE_URL)")

	uploadCmd.Flags().StringVar(&projectID, "project", "", "project the document belongs to")
	uploadCmd.Flags().StringVar(&documentType, "type", "regulation", "document type")
	uploadCmd.Flags().StringVar(&category, "category", "", "document category")
	uploadCmd.Flags().BoolVar(&wait, "wait", false, "block until the ingestion job finishes")
	uploadCmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "status poll interval with --wait")
	uploadCmd.Flags().IntVar(&maxAttempts, "max-attempts", 60, "status poll attempts with --wait")
	_ = uploadCmd.MarkFlagRequired("project")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(statusCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func resolveIngestionURL() (string, error) {
	if ingestionURL != "" {
		return ingestionURL, nil
	}
	if env := os.Getenv("INGESTION_SERVICE_URL"); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("ingestion service URL is required: set --ingestion-url or INGESTION_SERVICE_URL")
}

func runUpload(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	baseURL, err := resolveIngestionURL()
	if err != nil {
		return err
	}

	path := args[0]
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := shorui_http.NewIngestionClient(baseURL, 120)
	result, err := client.UploadDocument(ctx, filepath.Base(path), file, projectID, documentType, category)
	if err != nil {
		return fmt.Errorf("upload document: %w", err)
	}

	logger.Info("document submitted",
		slog.String("job_id", result.JobID),
		slog.String("status", result.Status),
	)
	fmt.Printf("job_id: %s\n", result.JobID)

	if !wait {
		return nil
	}

	poller := shorui_http.NewJobPoller(ingestionStatusChecker{client: client}, logger).
		WithInterval(pollInterval, maxAttempts)
	status, err := poller.Wait(ctx, result.JobID)
	if err != nil {
		return err
	}

	fmt.Printf("status: %s\n", status.Status)
	if status.ErrorMessage != "" {
		fmt.Printf("error: %s\n", status.ErrorMessage)
	}
	if status.Status != "completed" {
		return fmt.Errorf("ingestion job %s finished with status %s", status.JobID, status.Status)
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	baseURL, err := resolveIngestionURL()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := shorui_http.NewIngestionClient(baseURL, 30)
	status, err := client.CheckStatus(ctx, args[0])
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}

	fmt.Printf("job_id: %s\nstatus: %s\n", status.JobID, status.Status)
	if status.ErrorMessage != "" {
		fmt.Printf("error: %s\n", status.ErrorMessage)
	}
	return nil
}

// ingestionStatusChecker adapts the ingestion client to the poller's
// status interface.
type ingestionStatusChecker struct {
	client *shorui_http.IngestionClient
}

func (c ingestionStatusChecker) TranscriptJobStatus(ctx context.Context, jobID string) (*shorui_http.JobStatus, error) {
	return c.client.CheckStatus(ctx, jobID)
}
