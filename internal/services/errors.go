package services

import "errors"

// Failure categories of a run. Callers match them with errors.Is.
var (
	// ErrAnalysisFailure means no text could be extracted. Fatal for the run.
	ErrAnalysisFailure = errors.New("document analysis failed")
	// ErrStoreUnavailable covers prompt listing, prompt writes and result writes.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDiagnosticWrite is logged and never fails a run.
	ErrDiagnosticWrite = errors.New("diagnostic write failed")
	// ErrNotificationFailed is logged and never fails a run.
	ErrNotificationFailed = errors.New("completion notification failed")
)
