package services

import (
	"context"
	"errors"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"grpc unavailable", status.Error(codes.Unavailable, "down"), true},
		{"grpc aborted", status.Error(codes.Aborted, "contention"), true},
		{"grpc permission denied", status.Error(codes.PermissionDenied, "no"), false},
		{"grpc failed precondition", status.Error(codes.FailedPrecondition, "stale"), false},
		{"http 503", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"http 429", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"http 404", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"missing object", fmt.Errorf("read: %w", storage.ErrObjectNotExist), false},
		{"cancelled", context.Canceled, false},
		{"connection reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, true},
		{"dns failure", fmt.Errorf("dial: %w", &net.DNSError{Err: "timeout", Name: "firestore.googleapis.com", IsTimeout: true}), true},
		{"truncated body", fmt.Errorf("read object: %w", io.ErrUnexpectedEOF), true},
		{"validation error", errors.New("firestore: nil document contents"), false},
		{"marshal error", &json.UnsupportedTypeError{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestRetryPolicyRetriesTransientErrors(t *testing.T) {
	policy := retryPolicy{maxAttempts: 4, initialBackoff: time.Millisecond}
	calls := 0

	err := policy.do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return status.Error(codes.Unavailable, "down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyStopsOnPermanentError(t *testing.T) {
	policy := retryPolicy{maxAttempts: 4, initialBackoff: time.Millisecond}
	calls := 0
	permanent := status.Error(codes.PermissionDenied, "no")

	err := policy.do(context.Background(), "op", func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyGivesUpAfterMaxAttempts(t *testing.T) {
	policy := retryPolicy{maxAttempts: 3, initialBackoff: time.Millisecond}
	calls := 0

	err := policy.do(context.Background(), "op", func(context.Context) error {
		calls++
		return io.ErrUnexpectedEOF
	})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.ErrorContains(t, err, "op: unexpected EOF")
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyDoesNotRetryClientErrors(t *testing.T) {
	policy := retryPolicy{maxAttempts: 4, initialBackoff: time.Hour}
	calls := 0
	invalid := errors.New("firestore: invalid field path")

	err := policy.do(context.Background(), "op", func(context.Context) error {
		calls++
		return invalid
	})
	assert.ErrorIs(t, err, invalid)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyAbortsOnCancelledContext(t *testing.T) {
	policy := retryPolicy{maxAttempts: 4, initialBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	err := policy.do(ctx, "op", func(context.Context) error {
		cancel()
		return status.Error(codes.Unavailable, "down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
