package services

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/docminer/internal/gcp"
	"github.com/Lllllllleong/docminer/internal/models"
)

// DiagnosticSink stores the raw analysis output for troubleshooting.
type DiagnosticSink interface {
	PersistRaw(ctx context.Context, file string, analysis *models.AnalysisResult) error
}

// GCSDiagnosticSink writes analysis output as <file>.json into a bucket.
type GCSDiagnosticSink struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewGCSDiagnosticSink creates a sink writing into bucketName.
func NewGCSDiagnosticSink(client *storage.Client, bucketName string) *GCSDiagnosticSink {
	return &GCSDiagnosticSink{bucket: client.Bucket(bucketName), bucketName: bucketName}
}

// DiagnosticObjectName is the object key used for a document's raw analysis.
func DiagnosticObjectName(file string) string {
	return file + ".json"
}

// PersistRaw overwrites any earlier output for the same file.
func (s *GCSDiagnosticSink) PersistRaw(ctx context.Context, file string, analysis *models.AnalysisResult) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal analysis: %w", ErrDiagnosticWrite, err)
	}
	objectName := DiagnosticObjectName(file)
	if err := gcp.SaveToGCS(ctx, s.bucket, objectName, "application/json", payload); err != nil {
		return fmt.Errorf("%w: gs://%s/%s: %w", ErrDiagnosticWrite, s.bucketName, objectName, err)
	}
	return nil
}
