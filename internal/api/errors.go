package api

import (
	"errors"
	"net/http"

	"shici/pkg/domain"
)

// ErrUnsupported marks operations the REST surface does not expose (relation
// listings live only behind the backend-service path).
var ErrUnsupported = errors.New("operation not supported by the rest backend")

// Error represents a classified REST API failure.
type Error struct {
	Status  int
	Code    string
	Message string
	Kind    domain.ErrorKind
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorKind reports the closed failure class for this error.
func (e *Error) ErrorKind() domain.ErrorKind {
	return e.Kind
}

func classifyStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return domain.KindBadRequest
	case status == http.StatusUnauthorized:
		return domain.KindUnauthorized
	case status == http.StatusForbidden:
		return domain.KindForbidden
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status == http.StatusConflict:
		return domain.KindConflict
	case status >= 500:
		return domain.KindServer
	default:
		return domain.KindOther
	}
}

// retryable reports whether a failure is transient enough to re-issue the
// request. Timeouts are deliberately excluded, as are classified 4xx statuses
// so the unauthorized hook fires at most once per call.
func retryable(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case domain.KindNetwork, domain.KindServer:
		return true
	}
	return false
}
