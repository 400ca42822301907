package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lllllllleong/docminer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestShouldProcess(t *testing.T) {
	assert.True(t, ShouldProcess("uploads/", "uploads/loan.pdf"))
	assert.True(t, ShouldProcess("uploads/", "uploads/2024/loan.pdf"))
	assert.True(t, ShouldProcess("", "loan.pdf"))
	assert.False(t, ShouldProcess("uploads/", "di-output/loan.pdf.json"))
	assert.False(t, ShouldProcess("uploads/", "uploads/"))
	assert.False(t, ShouldProcess("uploads/", "uploads/2024/"))
	assert.False(t, ShouldProcess("uploads/", ""))
}

func newTestDocMiner(fx *pipelineFixture, download func(ctx context.Context, bucket, object string) ([]byte, error)) *DocMinerFunction {
	return &DocMinerFunction{
		prompts:  fx.prompts,
		pipeline: fx.pipeline,
		download: download,
		config:   DocMinerConfig{UploadPrefix: "uploads/"},
	}
}

func TestDocMinerProcessRunsPipelineForUploads(t *testing.T) {
	fx := newPipelineFixture(false)
	ctx := context.Background()

	var downloaded string
	f := newTestDocMiner(fx, func(_ context.Context, bucket, object string) ([]byte, error) {
		downloaded = bucket + "/" + object
		return []byte("%PDF-1.7"), nil
	})

	fx.analyzer.On("Analyze", ctx, mock.MatchedBy(func(d *models.Document) bool {
		return d.Name == "loan.pdf" && d.Bucket == "docs" && d.ObjectPath == "uploads/loan.pdf" &&
			d.ContentType == "application/pdf" && d.Size == 8
	})).Return(loanAnalysis(), nil).Once()
	fx.prompts.On("ListPrompts", ctx).Return([]*models.Prompt{}, nil).Once()
	fx.results.On("PersistResult", ctx, mock.MatchedBy(func(r *models.ResultRecord) bool {
		return r.File == "loan.pdf"
	})).Return(nil).Once()

	err := f.Process(ctx, models.GCSEvent{Bucket: "docs", Name: "uploads/loan.pdf", ContentType: "application/pdf", Size: "8"})
	require.NoError(t, err)
	assert.Equal(t, "docs/uploads/loan.pdf", downloaded)
	fx.analyzer.AssertExpectations(t)
	fx.results.AssertExpectations(t)
}

func TestDocMinerProcessSkipsObjectsOutsideUploadPrefix(t *testing.T) {
	fx := newPipelineFixture(false)
	f := newTestDocMiner(fx, func(context.Context, string, string) ([]byte, error) {
		t.Fatal("download must not be called")
		return nil, nil
	})

	err := f.Process(context.Background(), models.GCSEvent{Bucket: "docs", Name: "di-output/loan.pdf.json"})
	require.NoError(t, err)
	fx.analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestDocMinerProcessPropagatesFatalErrors(t *testing.T) {
	fx := newPipelineFixture(false)
	ctx := context.Background()
	f := newTestDocMiner(fx, func(context.Context, string, string) ([]byte, error) {
		return []byte("%PDF-1.7"), nil
	})
	fx.analyzer.On("Analyze", ctx, mock.Anything).Return(nil, errors.New("boom")).Once()

	err := f.Process(ctx, models.GCSEvent{Bucket: "docs", Name: "uploads/loan.pdf", Size: "not-a-number"})
	assert.ErrorIs(t, err, ErrAnalysisFailure)
}

func TestDocMinerProcessDownloadFailure(t *testing.T) {
	fx := newPipelineFixture(false)
	cause := errors.New("object vanished")
	f := newTestDocMiner(fx, func(context.Context, string, string) ([]byte, error) {
		return nil, cause
	})

	err := f.Process(context.Background(), models.GCSEvent{Bucket: "docs", Name: "uploads/loan.pdf"})
	assert.ErrorIs(t, err, cause)
}

func TestDocMinerProcessFile(t *testing.T) {
	fx := newPipelineFixture(false)
	ctx := context.Background()
	f := newTestDocMiner(fx, nil)

	path := filepath.Join(t.TempDir(), "terms.txt")
	require.NoError(t, os.WriteFile(path, []byte("collateral type: real estate"), 0o600))

	fx.analyzer.On("Analyze", ctx, mock.MatchedBy(func(d *models.Document) bool {
		return d.Name == "terms.txt" && string(d.Data) == "collateral type: real estate"
	})).Return(&models.AnalysisResult{Pages: []models.Page{{PageNumber: 1, Content: "collateral type: real estate"}}}, nil).Once()
	fx.prompts.On("ListPrompts", ctx).Return(loanPrompts(), nil).Once()
	fx.prompts.On("UpdatePrompt", ctx, mock.Anything).Return(nil)
	fx.results.On("PersistResult", ctx, mock.Anything).Return(nil).Once()

	report, err := f.ProcessFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	assert.Equal(t, "terms.txt", report.File)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo-project")
	t.Setenv("OCR_CONCURRENCY", "8")
	t.Setenv("OCR_PAGE_TIMEOUT", "45s")
	t.Setenv("PROMPT_CONCURRENCY_CHECK", "true")
	t.Setenv("DIAGNOSTICS_BUCKET", "di-output")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "demo-project", cfg.ProjectID)
	assert.Equal(t, "loan-participation", cfg.FirestoreDatabase)
	assert.Equal(t, "uploads/", cfg.UploadPrefix)
	assert.Equal(t, 8, cfg.OCRConcurrency)
	assert.Equal(t, 45*time.Second, cfg.OCRPageTimeout)
	assert.True(t, cfg.PromptConcurrencyCheck)
	assert.Equal(t, "di-output", cfg.DiagnosticsBucket)
	assert.Empty(t, cfg.WorkflowID)
}

func TestLoadConfigRequiresProject(t *testing.T) {
	t.Setenv("PROJECT_ID", "")

	_, err := loadConfig()
	assert.ErrorContains(t, err, "PROJECT_ID")
}

func TestLoadConfigRejectsZeroConcurrency(t *testing.T) {
	t.Setenv("PROJECT_ID", "demo-project")
	t.Setenv("OCR_CONCURRENCY", "0")

	_, err := loadConfig()
	assert.ErrorContains(t, err, "OCR_CONCURRENCY")
}
