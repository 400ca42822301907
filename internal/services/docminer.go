package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/Lllllllleong/docminer/internal/gcp"
	"github.com/Lllllllleong/docminer/internal/models"
	"github.com/joho/godotenv"
)

// Fixed store layout.
const (
	DatabaseName      = "LoanParticipation"
	QueriesCollection = "Queries"
	ResultsCollection = "Results"
)

// DocMinerConfig holds all configuration for the document trigger.
type DocMinerConfig struct {
	ProjectID              string
	VertexAIRegion         string
	OCRModel               string
	OCRConcurrency         int
	OCRPageTimeout         time.Duration
	FirestoreDatabase      string
	UploadPrefix           string
	DiagnosticsBucket      string
	PromptConcurrencyCheck bool
	WorkflowID             string
	WorkflowLocation       string
}

// loadConfig loads and validates all necessary environment variables for this service.
// A .env file in the working directory is honoured for local runs.
func loadConfig() (*DocMinerConfig, error) {
	_ = godotenv.Load()

	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := &DocMinerConfig{
		ProjectID:              projectID,
		VertexAIRegion:         gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		OCRModel:               gcp.GetEnv("OCR_MODEL", "gemini-1.5-pro"),
		OCRConcurrency:         gcp.GetEnvInt("OCR_CONCURRENCY", 4),
		OCRPageTimeout:         gcp.GetEnvDuration("OCR_PAGE_TIMEOUT", 2*time.Minute),
		FirestoreDatabase:      gcp.GetEnv("FIRESTORE_DATABASE", gcp.DatabaseID(DatabaseName)),
		UploadPrefix:           gcp.GetEnv("UPLOAD_PREFIX", "uploads/"),
		DiagnosticsBucket:      gcp.GetEnv("DIAGNOSTICS_BUCKET", ""),
		PromptConcurrencyCheck: gcp.GetEnvBool("PROMPT_CONCURRENCY_CHECK", false),
		WorkflowID:             gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:       gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	if config.OCRConcurrency < 1 {
		return nil, fmt.Errorf("OCR_CONCURRENCY must be at least 1")
	}
	return config, nil
}

// DocMinerFunction holds the process-wide clients and the pipeline they back.
type DocMinerFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	vertexClient     *gcp.VertexClient
	executionsClient *executions.Client
	prompts          PromptStore
	pipeline         *Pipeline
	download         func(ctx context.Context, bucket, object string) ([]byte, error)
	config           DocMinerConfig
}

// NewDocMiner creates every client once and wires the pipeline.
func NewDocMiner(ctx context.Context) (*DocMinerFunction, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID, config.FirestoreDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.OCRModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	f := &DocMinerFunction{
		storageClient:   storageClient,
		firestoreClient: firestoreClient,
		vertexClient:    vertexClient,
		prompts:         NewFirestorePromptStore(firestoreClient, QueriesCollection, config.PromptConcurrencyCheck),
		config:          *config,
	}
	f.download = f.downloadObject

	deps := PipelineDeps{
		Analyzer: NewContentRouter(
			NewVertexAnalyzer(vertexClient, config.OCRConcurrency, config.OCRPageTimeout),
			NewDocconvAnalyzer(),
		),
		Prompts: f.prompts,
		Results: NewFirestoreResultSink(firestoreClient, ResultsCollection),
	}
	if config.DiagnosticsBucket != "" {
		deps.Diagnostics = NewGCSDiagnosticSink(storageClient, config.DiagnosticsBucket)
	}
	if config.WorkflowID != "" {
		executionsClient, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		f.executionsClient = executionsClient
		deps.Notifier = NewWorkflowNotifier(executionsClient, gcp.WorkflowName(config.ProjectID, config.WorkflowLocation, config.WorkflowID))
	}
	f.pipeline = NewPipeline(deps)

	slog.Info("DocMiner initialized.",
		"firestoreDatabase", config.FirestoreDatabase,
		"ocrModel", config.OCRModel,
		"uploadPrefix", config.UploadPrefix,
		"diagnostics", config.DiagnosticsBucket != "",
		"workflowId", config.WorkflowID,
	)
	return f, nil
}

// ShouldProcess reports whether an object belongs to the upload location. Folder
// placeholder objects are skipped.
func ShouldProcess(uploadPrefix, objectName string) bool {
	if objectName == "" || strings.HasSuffix(objectName, "/") {
		return false
	}
	return strings.HasPrefix(objectName, uploadPrefix)
}

// Process handles a storage event for a newly finalized object.
func (f *DocMinerFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !ShouldProcess(f.config.UploadPrefix, e.Name) {
		logCtx.Info("Object is outside the upload location. Skipping.", "uploadPrefix", f.config.UploadPrefix)
		return nil
	}

	size, err := e.SizeBytes()
	if err != nil {
		logCtx.Warn("Ignoring malformed size in event.", "error", err)
	}
	logCtx.Info("Processing new GCS object.", "size", size)

	_, err = f.ProcessObject(ctx, e.Bucket, e.Name, e.ContentType)
	return err
}

// ProcessObject downloads a GCS object and runs the pipeline on it.
func (f *DocMinerFunction) ProcessObject(ctx context.Context, bucket, object, contentType string) (*RunReport, error) {
	data, err := f.download(ctx, bucket, object)
	if err != nil {
		slog.Error("Failed to download uploaded document", "gcsBucket", bucket, "gcsObject", object, "error", err)
		return nil, err
	}

	doc := &models.Document{
		Name:        path.Base(object),
		Bucket:      bucket,
		ObjectPath:  object,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}
	return f.pipeline.Run(ctx, doc)
}

// ProcessFile runs the pipeline on a local file.
func (f *DocMinerFunction) ProcessFile(ctx context.Context, filePath string) (*RunReport, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	doc := &models.Document{
		Name:       filepath.Base(filePath),
		ObjectPath: filePath,
		Size:       int64(len(data)),
		Data:       data,
	}
	return f.pipeline.Run(ctx, doc)
}

// ListPrompts returns the current prompt collection.
func (f *DocMinerFunction) ListPrompts(ctx context.Context) ([]*models.Prompt, error) {
	return f.prompts.ListPrompts(ctx)
}

func (f *DocMinerFunction) downloadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	var data []byte
	err := defaultRetryPolicy.do(ctx, "download gs://"+bucket+"/"+object, func(ctx context.Context) error {
		var err error
		data, err = gcp.ReadObject(ctx, f.storageClient.Bucket(bucket), object)
		return err
	})
	return data, err
}

// Close releases every client.
func (f *DocMinerFunction) Close() error {
	var errs []error
	if f.executionsClient != nil {
		errs = append(errs, f.executionsClient.Close())
	}
	if f.vertexClient != nil {
		errs = append(errs, f.vertexClient.Close())
	}
	if f.firestoreClient != nil {
		errs = append(errs, f.firestoreClient.Close())
	}
	if f.storageClient != nil {
		errs = append(errs, f.storageClient.Close())
	}
	return errors.Join(errs...)
}
