package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/docminer/internal/gcp"
	"github.com/Lllllllleong/docminer/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

const mimePDF = "application/pdf"

// pdfcpu must not try to create a config dir on the read-only function filesystem.
var disablePDFConfigDir sync.Once

// contentGenerator is the part of genai.GenerativeModel used for transcription.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexAnalyzer extracts text with a Gemini model on Vertex AI. PDFs are split into
// single pages which are transcribed concurrently.
type VertexAnalyzer struct {
	model       contentGenerator
	modelName   string
	concurrency int
	pageTimeout time.Duration
}

// NewVertexAnalyzer creates an analyzer using the client's OCR model.
func NewVertexAnalyzer(client *gcp.VertexClient, concurrency int, pageTimeout time.Duration) *VertexAnalyzer {
	return newVertexAnalyzer(client.OCRModel, client.ModelName, concurrency, pageTimeout)
}

func newVertexAnalyzer(m contentGenerator, modelName string, concurrency int, pageTimeout time.Duration) *VertexAnalyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &VertexAnalyzer{
		model:       m,
		modelName:   modelName,
		concurrency: concurrency,
		pageTimeout: pageTimeout,
	}
}

// Analyze transcribes every page of the document.
func (a *VertexAnalyzer) Analyze(ctx context.Context, doc *models.Document) (*models.AnalysisResult, error) {
	logCtx := slog.With("file", doc.Name, "contentType", doc.ContentType, "model", a.modelName)

	var pages [][]byte
	mimeType := doc.ContentType
	if doc.ContentType == mimePDF {
		split, err := splitPDFPages(doc.Data)
		if err != nil {
			logCtx.Error("Failed to split PDF into pages", "error", err)
			return nil, err
		}
		pages = split
	} else {
		data, converted, err := toModelImage(doc.Data, doc.ContentType)
		if err != nil {
			logCtx.Error("Failed to convert image for OCR", "error", err)
			return nil, err
		}
		if converted != mimeType {
			logCtx.Info("Converted image for OCR.", "from", mimeType, "to", converted)
		}
		pages, mimeType = [][]byte{data}, converted
	}
	logCtx.Info("Starting OCR.", "pageCount", len(pages), "concurrency", a.concurrency)

	texts, err := a.transcribePages(ctx, mimeType, pages)
	if err != nil {
		logCtx.Error("OCR failed", "error", err)
		return nil, err
	}

	result := &models.AnalysisResult{
		ModelID:     a.modelName,
		ContentType: doc.ContentType,
		Pages:       make([]models.Page, len(texts)),
	}
	for i, text := range texts {
		result.Pages[i] = models.Page{PageNumber: i + 1, Content: text}
	}
	logCtx.Info("OCR complete.", "pageCount", len(result.Pages))
	return result, nil
}

// transcribePages runs the model on every page with bounded concurrency and returns
// the texts in page order. The first failing page cancels the rest.
func (a *VertexAnalyzer) transcribePages(ctx context.Context, mimeType string, pages [][]byte) ([]string, error) {
	texts := make([]string, len(pages))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.concurrency)

	for i, page := range pages {
		pageNumber := i + 1
		eg.Go(func() error {
			text, err := a.transcribe(gctx, mimeType, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNumber, err)
			}
			texts[pageNumber-1] = text
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}

func (a *VertexAnalyzer) transcribe(ctx context.Context, mimeType string, page []byte) (string, error) {
	if a.pageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.pageTimeout)
		defer cancel()
	}

	resp, err := a.model.GenerateContent(ctx, genai.Blob{MIMEType: mimeType, Data: page}, genai.Text(gcp.OCRUserPrompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("model blocked the page: %w", err)
		}
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	text := extractText(resp)
	if isRefusal(text) {
		return "", fmt.Errorf("gemini response indicates refusal to transcribe")
	}
	return text, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot transcribe",
	"i cannot provide",
	"as a large language model",
}

func isRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(lower, phrase) {
			return true
		}
	}
	return false
}

// splitPDFPages validates the PDF and returns each page as a standalone PDF.
func splitPDFPages(data []byte) ([][]byte, error) {
	disablePDFConfigDir.Do(api.DisableConfigDir)

	tempDir, err := os.MkdirTemp("", "docminer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := api.OptimizeFile(sourcePath, optimizedPath, conf); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, nil
	}
	if err := api.SplitFile(optimizedPath, tempDir, 1, conf); err != nil {
		return nil, fmt.Errorf("failed to split PDF: %w", err)
	}

	base := strings.TrimSuffix(optimizedPath, filepath.Ext(optimizedPath))
	pages := make([][]byte, pageCount)
	for i := 1; i <= pageCount; i++ {
		page, err := os.ReadFile(fmt.Sprintf("%s_%d.pdf", base, i))
		if err != nil {
			return nil, fmt.Errorf("failed to read split page %d: %w", i, err)
		}
		pages[i-1] = page
	}
	return pages, nil
}
