package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it to a status code.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
	KindUnauthorized         Kind = "unauthorized"
	KindUpstreamFormat       Kind = "upstream_format"
	KindUpstream             Kind = "upstream"
	KindAllGenerationsFailed Kind = "all_generations_failed"
	KindPrecondition         Kind = "precondition"
	KindInternal             Kind = "internal"
)

// maxRawLen caps how much of a vendor response is echoed back for diagnostics.
const maxRawLen = 500

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition indicates a status write the transition table rejects.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Error is the typed failure returned by every pipeline stage.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string, details interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: ErrNotFound}
}

// Forbidden never carries detail about the target resource.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "forbidden"}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// UpstreamFormat reports an unparseable vendor response; raw is truncated.
func UpstreamFormat(message, raw string) *Error {
	return &Error{
		Kind:    KindUpstreamFormat,
		Message: message,
		Details: map[string]string{"raw": Truncate(raw, maxRawLen)},
	}
}

// Upstream wraps a failed vendor call, passing the vendor message through.
func Upstream(vendor string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("%s request failed", vendor),
		Details: map[string]string{"vendor": vendor},
		Err:     err,
	}
}

func AllGenerationsFailed(attempted int, lastErr error) *Error {
	return &Error{
		Kind:    KindAllGenerationsFailed,
		Message: fmt.Sprintf("all %d generations failed", attempted),
		Details: map[string]int{"attempted": attempted},
		Err:     lastErr,
	}
}

func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the Kind of err. Store sentinels are mapped onto their kinds;
// anything unrecognised is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindPrecondition
	}
	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Truncate shortens s to at most n bytes, marking the cut.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
