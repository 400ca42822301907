package models

import (
	"fmt"
	"strconv"
)

// GCSEvent is the data payload of a Cloud Storage object.finalized CloudEvent.
// Cloud Storage encodes size as a decimal string.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
}

// SizeBytes parses the event's size field. A missing size is reported as zero.
func (e GCSEvent) SizeBytes() (int64, error) {
	if e.Size == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(e.Size, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid object size %q: %w", e.Size, err)
	}
	return n, nil
}

// CompletionPayload is the argument passed to the downstream workflow once a run completes.
type CompletionPayload struct {
	ResultID           string `json:"resultId"`
	File               string `json:"file"`
	PromptCount        int    `json:"promptCount"`
	FailedPromptWrites int    `json:"failedPromptWrites"`
}
