package services

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/docminer/internal/models"
)

// Notifier hands a completed run over to downstream processing.
type Notifier interface {
	Notify(ctx context.Context, payload models.CompletionPayload) error
}

// WorkflowNotifier starts a Cloud Workflows execution per completed run.
type WorkflowNotifier struct {
	client   *executions.Client
	workflow string
}

// NewWorkflowNotifier creates a notifier for the fully qualified workflow name.
func NewWorkflowNotifier(client *executions.Client, workflow string) *WorkflowNotifier {
	return &WorkflowNotifier{client: client, workflow: workflow}
}

// Notify creates a workflow execution with the payload as its argument.
func (n *WorkflowNotifier) Notify(ctx context.Context, payload models.CompletionPayload) error {
	req, err := newExecutionRequest(n.workflow, payload)
	if err != nil {
		return err
	}
	if _, err := n.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("%w: failed to trigger workflow execution: %w", ErrNotificationFailed, err)
	}
	return nil
}

func newExecutionRequest(workflow string, payload models.CompletionPayload) (*executionspb.CreateExecutionRequest, error) {
	argument, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal workflow payload: %w", ErrNotificationFailed, err)
	}
	return &executionspb.CreateExecutionRequest{
		Parent: workflow,
		Execution: &executionspb.Execution{
			Argument: string(argument),
		},
	}, nil
}
