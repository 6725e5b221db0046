package domain

import "errors"

// ErrorKind is the closed set of failure classes decided at the client
// boundary. Downstream code switches on kinds instead of matching message
// substrings.
type ErrorKind string

const (
	KindNetwork         ErrorKind = "network"
	KindTimeout         ErrorKind = "timeout"
	KindBadRequest      ErrorKind = "bad_request"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindServer          ErrorKind = "server"
	KindUnverifiedEmail ErrorKind = "unverified_email"
	KindBadCredentials  ErrorKind = "bad_credentials"
	KindOther           ErrorKind = "other"
)

// Classified is implemented by client errors that carry an ErrorKind.
type Classified interface {
	ErrorKind() ErrorKind
}

// KindOf extracts the kind from an error, defaulting to KindOther.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var classified Classified
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}
	return KindOther
}
