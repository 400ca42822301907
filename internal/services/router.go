package services

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/docminer/internal/models"
)

const mimeOctetStream = "application/octet-stream"

// localFormats are read by the local analyzer. Everything else goes to OCR.
var localFormats = map[string]bool{
	mimeDocx:  true,
	mimeODT:   true,
	mimeHTML:  true,
	mimeTextX: true,
	mimeXML:   true,
	mimeText:  true,
}

var extensionTypes = map[string]string{
	".pdf":  mimePDF,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  mimeGIF,
	".webp": "image/webp",
	".bmp":  mimeBMP,
	".tif":  mimeTIFF,
	".tiff": mimeTIFF,
	".docx": mimeDocx,
	".odt":  mimeODT,
	".html": mimeHTML,
	".htm":  mimeHTML,
	".xml":  mimeXML,
	".txt":  mimeText,
}

// ContentRouter dispatches a document to the OCR or the local analyzer by content type.
type ContentRouter struct {
	ocr   Analyzer
	local Analyzer
}

// NewContentRouter creates a router. local may be nil, in which case every document goes to OCR.
func NewContentRouter(ocr, local Analyzer) *ContentRouter {
	return &ContentRouter{ocr: ocr, local: local}
}

// Analyze resolves the document's content type and forwards it to the matching analyzer.
func (r *ContentRouter) Analyze(ctx context.Context, doc *models.Document) (*models.AnalysisResult, error) {
	doc.ContentType = ResolveContentType(doc)
	if r.local != nil && localFormats[doc.ContentType] {
		slog.Debug("Routing document to local analyzer.", "file", doc.Name, "contentType", doc.ContentType)
		return r.local.Analyze(ctx, doc)
	}
	slog.Debug("Routing document to OCR analyzer.", "file", doc.Name, "contentType", doc.ContentType)
	return r.ocr.Analyze(ctx, doc)
}

// ResolveContentType returns the media type of a document, without parameters. The declared
// type wins unless it is missing or generic; then the extension and finally the content
// itself are consulted.
func ResolveContentType(doc *models.Document) string {
	if mediaType, _, err := mime.ParseMediaType(doc.ContentType); err == nil && mediaType != mimeOctetStream {
		return strings.ToLower(mediaType)
	}
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(doc.Name))]; ok {
		return ct
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(doc.Data))
	return sniffed
}
