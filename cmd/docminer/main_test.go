package main

import (
	"bytes"
	"testing"

	"github.com/Lllllllleong/docminer/internal/services"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestParseGCSURI(t *testing.T) {
	bucket, object, ok := parseGCSURI("gs://docs/uploads/loan.pdf")
	assert.True(t, ok)
	assert.Equal(t, "docs", bucket)
	assert.Equal(t, "uploads/loan.pdf", object)

	for _, bad := range []string{"./loan.pdf", "gs://docs", "gs://docs/", "gs:///loan.pdf", "s3://docs/loan.pdf"} {
		_, _, ok := parseGCSURI(bad)
		assert.False(t, ok, bad)
	}
}

func TestPrintReport(t *testing.T) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	printReport(cmd, &services.RunReport{
		File:               "loan.pdf",
		State:              services.StateCompleted,
		ResultID:           "r-1",
		PromptCount:        2,
		FailedPromptWrites: []string{"q1"},
	})

	assert.Contains(t, out.String(), "state:     COMPLETED")
	assert.Contains(t, out.String(), "result:    r-1")
	assert.Contains(t, out.String(), "stale:     q1")
	assert.NotContains(t, out.String(), "failed at")
}
