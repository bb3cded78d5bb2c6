package domain

import (
	"context"
	"errors"
	"fmt"
)

// FailureCode identifies the terminal error taxonomy entry for a failed
// stage. Every code is terminal for the current run; retries are a new
// pipeline run driven by the caller.
type FailureCode string

const (
	FailureUnauthorizedCombination FailureCode = "UnauthorizedCombination"
	FailureUnauthorizedProduct     FailureCode = "UnauthorizedProduct"
	FailureSchemaInvalid           FailureCode = "SchemaInvalid"
	FailureConversionFailed        FailureCode = "ConversionFailed"
	FailureEventCountMismatch      FailureCode = "EventCountMismatch"
	FailureIndexingFailed          FailureCode = "IndexingFailed"
	FailureNoRoutingConfig         FailureCode = "NoRoutingConfig"
	FailureCredentialUnavailable   FailureCode = "CredentialUnavailable"
	FailureRoutingRejected         FailureCode = "RoutingRejected"
	FailureCancelled               FailureCode = "Cancelled"
	FailureInternal                FailureCode = "Internal"
)

// StageError is a typed stage failure. Stages return it so the
// orchestrator can match on the failure kind when writing the ledger row
// instead of parsing error strings.
type StageError struct {
	Code   FailureCode
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// Unwrap returns the underlying cause, if any.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError builds a StageError with a formatted detail message.
func NewStageError(code FailureCode, format string, args ...interface{}) *StageError {
	return &StageError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// WrapStageError builds a StageError that wraps an underlying cause.
func WrapStageError(code FailureCode, err error, format string, args ...interface{}) *StageError {
	return &StageError{Code: code, Detail: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the failure code from err. Context cancellation maps to
// FailureCancelled; anything untyped maps to FailureInternal.
func CodeOf(err error) FailureCode {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return FailureCancelled
	}
	return FailureInternal
}

// ErrCancelled marks a stage aborted by the caller (deadline or cancel).
var ErrCancelled = errors.New("pipeline run cancelled")
