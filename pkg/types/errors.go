package types

import (
	"errors"
	"fmt"
)

// ErrAllocationExhausted is returned when risk sizing computes a zero trade
// amount. It is a skip condition, not a failure.
var ErrAllocationExhausted = errors.New("token allocation exhausted")

// UnsupportedVenueError is returned when a swap is requested for a venue
// with no registered encoder.
type UnsupportedVenueError struct {
	Venue string
}

func (e *UnsupportedVenueError) Error() string {
	return fmt.Sprintf("unsupported venue: %s", e.Venue)
}

// ValidationRejectedError indicates a token or risk check failed before
// enqueue. The opportunity is dropped, never retried.
type ValidationRejectedError struct {
	Token  string
	Reason string
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("validation rejected for %s: %s", e.Token, e.Reason)
}

// BuildError indicates transaction construction failed. Surfaced
// immediately with no retry.
type BuildError struct {
	Venue string
	Cause error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build transaction for %s: %v", e.Venue, e.Cause)
}

func (e *BuildError) Unwrap() error { return e.Cause }

// SubmissionError indicates a transient broadcast failure. Retried with
// backoff and a refreshed blockhash each attempt.
type SubmissionError struct {
	Attempt int
	Cause   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (attempt %d): %v", e.Attempt, e.Cause)
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// ConfirmationTimeoutError indicates a transaction was submitted but not
// confirmed within the configured timeout. Treated as a SubmissionError for
// retry purposes.
type ConfirmationTimeoutError struct {
	Signature string
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed before timeout", e.Signature)
}
