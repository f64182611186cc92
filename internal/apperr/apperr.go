// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindQuotaExceeded
	KindUpstreamUnavailable
	KindUnsupported
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUnsupported:
		return "unsupported"
	case KindStorage:
		return "storage_error"
	default:
		return "internal_error"
	}
}

// Status is the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a Kind, a machine-readable Code and a client-safe Message.
// Err is the underlying cause and is never shown to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message != "" {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, code, msg string, err error) *Error {
	if code == "" {
		code = kind.String()
	}
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func Validation(code, msg string) *Error  { return New(KindValidation, code, msg, nil) }
func NotFound(code, msg string) *Error    { return New(KindNotFound, code, msg, nil) }
func Conflict(code, msg string) *Error    { return New(KindConflict, code, msg, nil) }
func Unsupported(code, msg string) *Error { return New(KindUnsupported, code, msg, nil) }

func QuotaExceeded(msg string) *Error { return New(KindQuotaExceeded, "quota_exceeded", msg, nil) }

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, "", msg, nil) }
func Forbidden(msg string) *Error       { return New(KindForbidden, "", msg, nil) }

func Upstream(code, msg string, err error) *Error {
	return New(KindUpstreamUnavailable, code, msg, err)
}

func Storage(err error, msg string) *Error  { return New(KindStorage, "", msg, err) }
func Internal(err error, msg string) *Error { return New(KindInternal, "", msg, err) }

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine code of err, "" when err is not an *Error.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// Public returns the status, code and message safe to send to a client.
// Storage and internal failures never leak their cause.
func Public(err error) (status int, code, msg string) {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, KindInternal.String(), "internal server error"
	}
	msg = e.Message
	switch e.Kind {
	case KindStorage, KindInternal:
		if msg == "" {
			msg = "internal server error"
		}
	default:
		if msg == "" {
			msg = e.Kind.String()
		}
	}
	return e.Kind.Status(), e.Code, msg
}
