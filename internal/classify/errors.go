package classify

import "errors"

var (
	// ErrBatchFailed marks a terminal batch-level failure: every attempt
	// against the classification backend failed, nothing was returned, and
	// the whole batch is safely retryable on a later run.
	ErrBatchFailed = errors.New("classification batch failed")
	// ErrBackendUnreachable marks a network-level failure to reach the backend.
	ErrBackendUnreachable = errors.New("classification backend unreachable")
	// ErrBackendTimeout marks an attempt that exceeded the request timeout.
	ErrBackendTimeout = errors.New("classification backend timeout")
	// ErrInvalidResponse marks a response body that could not be parsed.
	ErrInvalidResponse = errors.New("classification backend returned invalid response")
)
