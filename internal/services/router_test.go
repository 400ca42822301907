package services

import (
	"context"
	"testing"

	"github.com/Lllllllleong/docminer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		name string
		doc  models.Document
		want string
	}{
		{"declared type wins", models.Document{Name: "scan.bin", ContentType: "application/pdf"}, "application/pdf"},
		{"parameters stripped", models.Document{Name: "a", ContentType: "text/HTML; charset=utf-8"}, "text/html"},
		{"octet stream falls back to extension", models.Document{Name: "memo.DOCX", ContentType: "application/octet-stream"}, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"missing type uses extension", models.Document{Name: "page.png"}, "image/png"},
		{"tiff extension", models.Document{Name: "scan.TIF"}, "image/tiff"},
		{"sniffed when unknown", models.Document{Name: "upload", Data: []byte("%PDF-1.7\n")}, "application/pdf"},
		{"sniffed plain text", models.Document{Name: "upload", Data: []byte("hello world")}, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tt.doc
			assert.Equal(t, tt.want, ResolveContentType(&doc))
		})
	}
}

func TestContentRouterDispatch(t *testing.T) {
	tests := []struct {
		name      string
		doc       *models.Document
		wantLocal bool
	}{
		{"pdf goes to OCR", &models.Document{Name: "loan.pdf", Data: []byte("%PDF-1.7")}, false},
		{"image goes to OCR", &models.Document{Name: "scan.jpg", Data: []byte{0xff, 0xd8}}, false},
		{"docx goes local", &models.Document{Name: "terms.docx", Data: []byte("PK")}, true},
		{"html goes local", &models.Document{Name: "terms.html", Data: []byte("<html></html>")}, true},
		{"text goes local", &models.Document{Name: "notes.txt", Data: []byte("notes")}, true},
		{"xml goes local", &models.Document{Name: "terms.xml", Data: []byte("<terms/>")}, true},
		{"tiff goes to OCR", &models.Document{Name: "scan.tiff", Data: []byte("II*\x00")}, false},
		{"rtf goes to OCR", &models.Document{Name: "memo.rtf", ContentType: "application/rtf", Data: []byte("{\\rtf1}")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ocr, local := new(MockAnalyzer), new(MockAnalyzer)
			result := &models.AnalysisResult{}
			if tt.wantLocal {
				local.On("Analyze", mock.Anything, tt.doc).Return(result, nil).Once()
			} else {
				ocr.On("Analyze", mock.Anything, tt.doc).Return(result, nil).Once()
			}

			got, err := NewContentRouter(ocr, local).Analyze(context.Background(), tt.doc)
			require.NoError(t, err)
			assert.Same(t, result, got)
			ocr.AssertExpectations(t)
			local.AssertExpectations(t)
		})
	}
}

func TestContentRouterWithoutLocalAnalyzerUsesOCR(t *testing.T) {
	ocr := new(MockAnalyzer)
	doc := &models.Document{Name: "notes.txt", Data: []byte("notes")}
	ocr.On("Analyze", mock.Anything, doc).Return(&models.AnalysisResult{}, nil).Once()

	_, err := NewContentRouter(ocr, nil).Analyze(context.Background(), doc)
	require.NoError(t, err)
	ocr.AssertExpectations(t)
}
