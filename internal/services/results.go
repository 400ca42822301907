package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/docminer/internal/models"
)

// ResultSink persists the per-run result record.
type ResultSink interface {
	PersistResult(ctx context.Context, record *models.ResultRecord) error
}

// AssembleResult snapshots the answered prompts into a new result record.
func AssembleResult(file string, prompts []*models.Prompt, now time.Time, id string) *models.ResultRecord {
	snapshots := make([]map[string]interface{}, 0, len(prompts))
	for _, p := range prompts {
		snapshots = append(snapshots, p.Snapshot())
	}
	return &models.ResultRecord{
		ID:        id,
		File:      file,
		Timestamp: now.UTC(),
		Prompts:   snapshots,
	}
}

// FirestoreResultSink writes result records to a Firestore collection keyed by record ID.
type FirestoreResultSink struct {
	doc   func(id string) documentWriter
	retry retryPolicy
}

// NewFirestoreResultSink creates a sink over the named collection.
func NewFirestoreResultSink(client *firestore.Client, collection string) *FirestoreResultSink {
	return &FirestoreResultSink{
		doc:   collectionDoc(client.Collection(collection)),
		retry: defaultRetryPolicy,
	}
}

// PersistResult upserts the record. Retrying is safe since the ID is fixed for the run.
func (s *FirestoreResultSink) PersistResult(ctx context.Context, record *models.ResultRecord) error {
	ref := s.doc(record.ID)
	err := s.retry.do(ctx, "persist result "+record.ID, func(ctx context.Context) error {
		_, err := ref.Set(ctx, record)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
