package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/Lllllllleong/docminer/internal/models"
)

// localAnalyzerModelID identifies results produced without a model call.
const localAnalyzerModelID = "docconv"

const (
	mimeDocx  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeODT   = "application/vnd.oasis.opendocument.text"
	mimeHTML  = "text/html"
	mimeXML   = "application/xml"
	mimeText  = "text/plain"
	mimeTextX = "text/xml"
)

var errEmptyText = errors.New("no text extracted")

// DocconvAnalyzer extracts text locally from formats that carry their own text layer.
// Only docconv's pure-Go converters are used; nothing shells out to external tools.
type DocconvAnalyzer struct{}

// NewDocconvAnalyzer creates a DocconvAnalyzer.
func NewDocconvAnalyzer() *DocconvAnalyzer {
	return &DocconvAnalyzer{}
}

// Analyze converts the document and returns its body as a single page. A document that
// yields no text is an error.
func (a *DocconvAnalyzer) Analyze(ctx context.Context, doc *models.Document) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := convertLocal(doc.Data, doc.ContentType)
	if err != nil {
		return nil, fmt.Errorf("docconv: extraction failed for content type %q: %w", doc.ContentType, err)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("docconv: %w from %d bytes of %s", errEmptyText, len(doc.Data), doc.ContentType)
	}

	return &models.AnalysisResult{
		ModelID:     localAnalyzerModelID,
		ContentType: doc.ContentType,
		Pages:       []models.Page{{PageNumber: 1, Content: body}},
	}, nil
}

func convertLocal(data []byte, contentType string) (string, error) {
	switch contentType {
	case mimeDocx:
		body, _, err := docconv.ConvertDocx(bytes.NewReader(data))
		return body, err
	case mimeODT:
		body, _, err := docconv.ConvertODT(bytes.NewReader(data))
		return body, err
	case mimeHTML:
		return docconv.HTMLToText(bytes.NewReader(data)), nil
	case mimeXML, mimeTextX:
		return docconv.XMLToText(bytes.NewReader(data), nil, nil, true)
	case mimeText:
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
}
