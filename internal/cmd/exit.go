package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fulmenhq/gofulmen/foundry"

	apperrors "github.com/3leaps/blobtree/internal/errors"
	"github.com/3leaps/blobtree/pkg/output"
)

// Process exit codes. Everything past generic failure comes from the
// foundry exit code catalog.
const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitInvalidArgument = int(foundry.ExitInvalidArgument)
	ExitNotFound        = int(foundry.ExitFileNotFound)
	// Listing was refused, so the tree could not be read.
	ExitAccessDenied = int(foundry.ExitFileReadError)
	ExitUnavailable  = int(foundry.ExitExternalServiceUnavailable)
	ExitWriteFailed  = int(foundry.ExitFileWriteError)
	ExitCanceled     = int(foundry.ExitSignalInt)
)

// ExitError carries the exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	status, _ := apperrors.Classify(err)
	switch status {
	case http.StatusBadRequest:
		return ExitInvalidArgument
	case http.StatusNotFound:
		return ExitNotFound
	case http.StatusForbidden:
		return ExitAccessDenied
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ExitUnavailable
	case apperrors.StatusClientClosedRequest:
		return ExitCanceled
	}
	return ExitFailure
}

// failed wraps err with a message and the exit code it maps to.
func failed(message string, err error) error {
	return exitError(ExitCode(err), message, err)
}

// errorRecord renders err for JSONL output.
func errorRecord(path string, err error) *output.ErrorRecord {
	_, code := apperrors.Classify(err)
	switch code {
	case apperrors.CodeInvalidArgument:
		code = output.ErrCodeInvalidArgument
	case apperrors.CodeNotFound:
		code = output.ErrCodeNotFound
	case apperrors.CodeAccessDenied:
		code = output.ErrCodeAccessDenied
	case apperrors.CodeThrottled:
		code = output.ErrCodeThrottled
	case apperrors.CodeTimeout:
		code = output.ErrCodeTimeout
	case apperrors.CodeCanceled:
		code = output.ErrCodeCanceled
	case apperrors.CodeServiceUnavailable:
		code = output.ErrCodeUnavailable
	default:
		code = output.ErrCodeInternal
	}
	return &output.ErrorRecord{Code: code, Message: err.Error(), Path: path}
}
