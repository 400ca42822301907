package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/docminer/internal/models"
	"github.com/google/uuid"
)

// RunState is the position of a run in the pipeline.
type RunState string

const (
	StateReceived              RunState = "RECEIVED"
	StateExtracting            RunState = "EXTRACTING"
	StateMatching              RunState = "MATCHING"
	StatePersistingPrompts     RunState = "PERSISTING_PROMPTS"
	StatePersistingResult      RunState = "PERSISTING_RESULT"
	StatePersistingDiagnostics RunState = "PERSISTING_DIAGNOSTICS"
	StateCompleted             RunState = "COMPLETED"
	StateFailed                RunState = "FAILED"
)

// RunReport describes the outcome of one run.
type RunReport struct {
	File               string
	State              RunState
	FailedAt           RunState
	Err                error
	ResultID           string
	PromptCount        int
	FailedPromptWrites []string
}

func (r *RunReport) transition(logCtx *slog.Logger, next RunState) {
	logCtx.Debug("Run state change.", "from", r.State, "to", next)
	r.State = next
}

func (r *RunReport) fail(logCtx *slog.Logger, err error) (*RunReport, error) {
	r.FailedAt = r.State
	r.State = StateFailed
	r.Err = err
	logCtx.Error("Run failed.", "failedAt", r.FailedAt, "error", err)
	return r, err
}

// PipelineDeps are the collaborators of a Pipeline. Diagnostics and Notifier are optional.
type PipelineDeps struct {
	Analyzer    Analyzer
	Prompts     PromptStore
	Results     ResultSink
	Diagnostics DiagnosticSink
	Notifier    Notifier
}

// Pipeline answers every stored prompt against one document per run. It holds no
// per-run state and is shared by concurrent runs.
type Pipeline struct {
	extractor   *TextExtractor
	prompts     PromptStore
	results     ResultSink
	diagnostics DiagnosticSink
	notifier    Notifier
	now         func() time.Time
	newID       func() string
}

// NewPipeline wires a Pipeline from its collaborators.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		extractor:   NewTextExtractor(deps.Analyzer),
		prompts:     deps.Prompts,
		results:     deps.Results,
		diagnostics: deps.Diagnostics,
		notifier:    deps.Notifier,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Run processes a single document. The returned error is non-nil only for fatal failures:
// analysis, prompt listing, or persisting the result record. Failed prompt writes are
// recorded in the report and the run carries on.
func (p *Pipeline) Run(ctx context.Context, doc *models.Document) (*RunReport, error) {
	logCtx := slog.With("file", doc.Name, "bytes", len(doc.Data))
	report := &RunReport{File: doc.Name, State: StateReceived}
	logCtx.Info("New document received.")

	report.transition(logCtx, StateExtracting)
	analysis, text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return report.fail(logCtx, err)
	}
	logCtx.Info("Text extracted.", "pageCount", len(analysis.Pages), "textLength", len(text))

	prompts, err := p.prompts.ListPrompts(ctx)
	if err != nil {
		if !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return report.fail(logCtx, fmt.Errorf("failed to list prompts: %w", err))
	}
	report.PromptCount = len(prompts)
	logCtx.Info("Loaded prompts.", "promptCount", len(prompts))

	report.transition(logCtx, StateMatching)
	matcher := NewMatcher(text)
	for _, prompt := range prompts {
		prompt.SetAnswer(matcher.Answer(prompt.Question))
	}

	report.transition(logCtx, StatePersistingPrompts)
	for _, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return report.fail(logCtx, fmt.Errorf("run abandoned while writing prompts: %w", err))
		}
		if err := p.prompts.UpdatePrompt(ctx, prompt); err != nil {
			logCtx.Error("Failed to write prompt answer. Continuing with remaining prompts.", "promptId", prompt.ID, "error", err)
			report.FailedPromptWrites = append(report.FailedPromptWrites, prompt.ID)
		}
	}

	report.transition(logCtx, StatePersistingResult)
	record := AssembleResult(doc.Name, prompts, p.now(), p.newID())
	report.ResultID = record.ID
	if err := p.results.PersistResult(ctx, record); err != nil {
		if !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return report.fail(logCtx, fmt.Errorf("failed to persist result %s: %w", record.ID, err))
	}
	logCtx.Info("Result persisted.", "resultId", record.ID, "failedPromptWrites", len(report.FailedPromptWrites))

	if p.diagnostics != nil {
		report.transition(logCtx, StatePersistingDiagnostics)
		if err := p.diagnostics.PersistRaw(ctx, doc.Name, analysis); err != nil {
			logCtx.Warn("Could not write raw analysis output.", "error", err)
		}
	}

	report.transition(logCtx, StateCompleted)
	p.notify(ctx, logCtx, report)
	logCtx.Info("Run completed.", "resultId", report.ResultID)
	return report, nil
}

func (p *Pipeline) notify(ctx context.Context, logCtx *slog.Logger, report *RunReport) {
	if p.notifier == nil {
		return
	}
	payload := models.CompletionPayload{
		ResultID:           report.ResultID,
		File:               report.File,
		PromptCount:        report.PromptCount,
		FailedPromptWrites: len(report.FailedPromptWrites),
	}
	if err := p.notifier.Notify(ctx, payload); err != nil {
		logCtx.Warn("Could not notify downstream workflow.", "resultId", report.ResultID, "error", err)
	}
}
