// Package errors renders errors as JSON HTTP responses.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/3leaps/blobtree/pkg/blob"
	"github.com/3leaps/blobtree/pkg/match"
	"github.com/3leaps/blobtree/pkg/provider"
)

// Error codes.
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeThrottled          = "THROTTLED"
	CodeTimeout            = "TIMEOUT"
	CodeCanceled           = "CANCELED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is returned when the caller went away.
const StatusClientClosedRequest = 499

// HeaderRequestID carries the request correlation ID.
const HeaderRequestID = "X-Request-ID"

// ErrorBody is the payload of an error response.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HTTPErrorResponse is the JSON envelope of every error response:
// {"error":{"code":...,"message":...}}.
type HTTPErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// StatusError attaches an HTTP status and code to an error.
type StatusError struct {
	Status int
	Code   string
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// BadRequest marks err as caused by the request.
func BadRequest(err error) error {
	return &StatusError{Status: http.StatusBadRequest, Code: CodeInvalidArgument, Err: err}
}

// Classify maps an error to an HTTP status and error code.
func Classify(err error) (int, string) {
	var se *StatusError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &se):
		return se.Status, se.Code
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, CodeCanceled
	case errors.Is(err, blob.ErrInvalidArgument),
		errors.Is(err, match.ErrInvalidPattern),
		errors.Is(err, match.ErrInvalidSize),
		errors.Is(err, match.ErrInvalidDate),
		errors.Is(err, match.ErrInvalidRegex):
		return http.StatusBadRequest, CodeInvalidArgument
	case provider.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return http.StatusForbidden, CodeAccessDenied
	case provider.IsThrottled(err):
		return http.StatusTooManyRequests, CodeThrottled
	case provider.IsProviderUnavailable(err):
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

// Envelope builds the error envelope for code and message. The request's
// X-Request-ID becomes the correlation ID and details become its context.
func Envelope(r *http.Request, code, message string, details map[string]any) *gferrors.ErrorEnvelope {
	env := gferrors.NewErrorEnvelope(code, message)
	if r != nil {
		if id := r.Header.Get(HeaderRequestID); id != "" {
			env = env.WithCorrelationID(id)
		}
	}
	if len(details) > 0 {
		if withCtx, err := env.WithContext(details); err == nil {
			env = withCtx
		}
	}
	return env
}

// RespondWithError classifies err and writes the error envelope.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	WriteEnvelope(w, status, Envelope(r, code, err.Error(), nil))
}

// WriteEnvelope writes env as {"error":{...}} with status.
func WriteEnvelope(w http.ResponseWriter, status int, env *gferrors.ErrorEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: bodyOf(env)})
}

func bodyOf(env *gferrors.ErrorEnvelope) ErrorBody {
	if env == nil {
		return ErrorBody{Code: CodeInternal, Message: http.StatusText(http.StatusInternalServerError)}
	}
	return ErrorBody{
		Code:      env.Code,
		Message:   env.Message,
		RequestID: env.CorrelationID,
		Details:   env.Context,
	}
}
