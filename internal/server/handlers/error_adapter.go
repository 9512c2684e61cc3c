package handlers

import (
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/3leaps/blobtree/internal/errors"
)

// ErrorResponder writes err as an HTTP response.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

var httpErrorResponder ErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the responder used by the handlers. Nil
// restores the default.
func SetHTTPErrorResponder(fn ErrorResponder) {
	if fn == nil {
		httpErrorResponder = apperrors.RespondWithError
		return
	}
	httpErrorResponder = fn
}

// ResetHTTPErrorResponder restores the default responder.
func ResetHTTPErrorResponder() {
	httpErrorResponder = apperrors.RespondWithError
}

// LoggingResponder logs server-side failures before writing the envelope.
// Client errors (4xx) are written without logging.
func LoggingResponder(logger *zap.Logger) ErrorResponder {
	if logger == nil {
		return apperrors.RespondWithError
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		if status, code := apperrors.Classify(err); status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", r.Header.Get(apperrors.HeaderRequestID)),
				zap.Int("status", status),
				zap.String("code", code),
				zap.Error(err))
		}
		apperrors.RespondWithError(w, r, err)
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
