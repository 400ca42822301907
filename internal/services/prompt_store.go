package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/docminer/internal/models"
	"google.golang.org/api/iterator"
)

// PromptStore reads the pending prompts and writes their answers back.
// Writes are independent upserts; nothing is rolled back if a later write fails.
type PromptStore interface {
	ListPrompts(ctx context.Context) ([]*models.Prompt, error)
	UpdatePrompt(ctx context.Context, prompt *models.Prompt) error
}

// documentWriter is the write surface of a *firestore.DocumentRef.
type documentWriter interface {
	Set(ctx context.Context, data interface{}, opts ...firestore.SetOption) (*firestore.WriteResult, error)
	Update(ctx context.Context, updates []firestore.Update, preconds ...firestore.Precondition) (*firestore.WriteResult, error)
}

var _ documentWriter = (*firestore.DocumentRef)(nil)

// collectionDoc returns a lookup of document writers in the collection.
func collectionDoc(collection *firestore.CollectionRef) func(id string) documentWriter {
	return func(id string) documentWriter {
		return collection.Doc(id)
	}
}

// FirestorePromptStore keeps prompts in a Firestore collection.
type FirestorePromptStore struct {
	collection       *firestore.CollectionRef
	doc              func(id string) documentWriter
	concurrencyCheck bool
	retry            retryPolicy
}

// NewFirestorePromptStore creates a store over the named collection. With concurrencyCheck
// set, an answer is only written if the prompt has not changed since it was listed.
func NewFirestorePromptStore(client *firestore.Client, collection string, concurrencyCheck bool) *FirestorePromptStore {
	ref := client.Collection(collection)
	return &FirestorePromptStore{
		collection:       ref,
		doc:              collectionDoc(ref),
		concurrencyCheck: concurrencyCheck,
		retry:            defaultRetryPolicy,
	}
}

// ListPrompts streams every document of the collection.
func (s *FirestorePromptStore) ListPrompts(ctx context.Context) ([]*models.Prompt, error) {
	var prompts []*models.Prompt
	err := s.retry.do(ctx, "list prompts", func(ctx context.Context) error {
		prompts = prompts[:0]
		it := s.collection.Documents(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			prompts = append(prompts, models.NewPromptFromData(snap.Ref.ID, snap.Data(), snap.UpdateTime))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return prompts, nil
}

// UpdatePrompt upserts the prompt's answer. Other fields of the document are left as they are.
func (s *FirestorePromptStore) UpdatePrompt(ctx context.Context, prompt *models.Prompt) error {
	ref := s.doc(prompt.ID)
	err := s.retry.do(ctx, "update prompt "+prompt.ID, func(ctx context.Context) error {
		if s.concurrencyCheck && !prompt.UpdateTime.IsZero() {
			_, err := ref.Update(ctx,
				[]firestore.Update{{Path: models.FieldAnswer, Value: prompt.Answer}},
				firestore.LastUpdateTime(prompt.UpdateTime),
			)
			return err
		}
		_, err := ref.Set(ctx, map[string]interface{}{models.FieldAnswer: prompt.Answer}, firestore.MergeAll)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
