package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/docminer/internal/models"
)

// Analyzer is a document analysis capability. Analyze blocks until the analysis has
// reached a terminal state and returns the extracted pages.
type Analyzer interface {
	Analyze(ctx context.Context, doc *models.Document) (*models.AnalysisResult, error)
}

// TextExtractor turns a document into one block of text.
type TextExtractor struct {
	analyzer Analyzer
}

// NewTextExtractor creates a TextExtractor backed by the given analyzer.
func NewTextExtractor(analyzer Analyzer) *TextExtractor {
	return &TextExtractor{analyzer: analyzer}
}

// Extract analyses the document and returns the raw result together with the page
// contents joined by newlines. Every failure is reported as ErrAnalysisFailure.
func (e *TextExtractor) Extract(ctx context.Context, doc *models.Document) (*models.AnalysisResult, string, error) {
	if doc == nil || len(doc.Data) == 0 {
		return nil, "", fmt.Errorf("%w: document has no content", ErrAnalysisFailure)
	}

	result, err := e.analyzer.Analyze(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrAnalysisFailure, err)
	}
	if result == nil {
		return nil, "", fmt.Errorf("%w: analyzer returned no result for %s", ErrAnalysisFailure, doc.Name)
	}
	return result, result.Text(), nil
}
