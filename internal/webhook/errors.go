package webhook

import (
	"errors"
	"net/http"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// HTTPError is a typed request failure carrying its response status. The
// message is always generic enough to return to the caller.
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// BadRequest builds a 400 error with a caller-visible reason.
func BadRequest(message string) *HTTPError {
	return &HTTPError{Code: http.StatusBadRequest, Message: message}
}

// Authentication failures deliberately share one message: the response
// never distinguishes an unknown token from a bad signature.
var (
	ErrUnauthorized = &HTTPError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden    = &HTTPError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrNotFound     = &HTTPError{Code: http.StatusNotFound, Message: "Not found"}
)

// ErrorMiddleware maps typed errors returned by handlers to their status
// code. Untyped errors are logged and collapsed to a generic 500 so
// internals never leak to callers.
func ErrorMiddleware(logger *zap.Logger) bunrouter.MiddlewareFunc {
	return func(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
		return func(w http.ResponseWriter, req bunrouter.Request) error {
			err := next(w, req)
			if err == nil {
				return nil
			}

			// The content type must be set before the status line goes out;
			// headers written after WriteHeader are dropped.
			w.Header().Set("Content-Type", "application/json; charset=utf-8")

			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				w.WriteHeader(httpErr.Code)
				return bunrouter.JSON(w, httpErr)
			}

			logger.Error("Unhandled request error",
				zap.String("path", req.URL.Path),
				zap.Error(err))

			w.WriteHeader(http.StatusInternalServerError)

			return bunrouter.JSON(w, &HTTPError{Message: "Internal server error"})
		}
	}
}
