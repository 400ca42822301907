package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// retryPolicy retries transient failures with exponential backoff.
type retryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
}

var defaultRetryPolicy = retryPolicy{maxAttempts: 4, initialBackoff: 1 * time.Second}

// do runs fn until it succeeds, returns a permanent error, or attempts run out.
func (p retryPolicy) do(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := p.initialBackoff
	var lastErr error

	for i := 0; i < p.maxAttempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || i == p.maxAttempts-1 {
			break
		}

		slog.Warn(
			"Operation failed, will retry.",
			"operation", op,
			"attempt", i+1,
			"maxAttempts", p.maxAttempts,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "operation", op, "error", ctx.Err())
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

// isRetryable classifies errors from the Google Cloud clients. An error without an API
// status is retried only when it comes from the network.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal, codes.DeadlineExceeded:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
