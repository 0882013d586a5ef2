package foxentry

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies every error returned by this package.
type Kind int

const (
	// KindGeneric covers unmapped status codes and transport failures
	KindGeneric Kind = iota
	// KindValidation indicates bad client-supplied data rejected before sending
	KindValidation
	// KindConfiguration indicates a request that is missing its key, endpoint or query
	KindConfiguration
	KindBadRequest
	KindUnauthorized
	KindPaymentRequired
	KindForbidden
	KindNotFound
	KindTooManyRequests
	KindServerError
	KindServiceUnavailable
)

// Sentinel errors, one per Kind. Use errors.Is to test an error's kind.
var (
	ErrGeneric            = errors.New("foxentry: request failed")
	ErrValidation         = errors.New("foxentry: validation failed")
	ErrConfiguration      = errors.New("foxentry: invalid request configuration")
	ErrBadRequest         = errors.New("foxentry: bad request")
	ErrUnauthorized       = errors.New("foxentry: unauthorized")
	ErrPaymentRequired    = errors.New("foxentry: payment required")
	ErrForbidden          = errors.New("foxentry: forbidden")
	ErrNotFound           = errors.New("foxentry: not found")
	ErrTooManyRequests    = errors.New("foxentry: too many requests")
	ErrServerError        = errors.New("foxentry: server error")
	ErrServiceUnavailable = errors.New("foxentry: service unavailable")

	// ErrResponseTooLarge is the cause of a Generic error when the body exceeds the client limit
	ErrResponseTooLarge = errors.New("foxentry: response body too large")
	// ErrMissingHeader is the cause of a Generic error when a required response header is absent
	ErrMissingHeader = errors.New("foxentry: missing response header")
)

type kindInfo struct {
	name     string
	sentinel error
	message  string
}

var kinds = map[Kind]kindInfo{
	KindGeneric:            {"Generic", ErrGeneric, "Request failed."},
	KindValidation:         {"Validation", ErrValidation, "Validation failed."},
	KindConfiguration:      {"Configuration", ErrConfiguration, "Request is not configured."},
	KindBadRequest:         {"BadRequest", ErrBadRequest, "Request was invalid or cannot be processed."},
	KindUnauthorized:       {"Unauthorized", ErrUnauthorized, "Unauthorized. Did you set your API key?"},
	KindPaymentRequired:    {"PaymentRequired", ErrPaymentRequired, "Payment is required to access this resource."},
	KindForbidden:          {"Forbidden", ErrForbidden, "Forbidden."},
	KindNotFound:           {"NotFound", ErrNotFound, "Resource or endpoint requested is not found on the server."},
	KindTooManyRequests:    {"TooManyRequests", ErrTooManyRequests, "Too many requests have been made in the given time frame or the daily limit has been reached."},
	KindServerError:        {"ServerError", ErrServerError, "Internal server error."},
	KindServiceUnavailable: {"ServiceUnavailable", ErrServiceUnavailable, "The server is temporarily unable to handle the request."},
}

// statusKinds is the complete status table. Codes not listed map to KindGeneric.
var statusKinds = map[int]Kind{
	http.StatusBadRequest:          KindBadRequest,
	http.StatusUnauthorized:        KindUnauthorized,
	http.StatusPaymentRequired:     KindPaymentRequired,
	http.StatusForbidden:           KindForbidden,
	http.StatusNotFound:            KindNotFound,
	http.StatusTooManyRequests:     KindTooManyRequests,
	http.StatusInternalServerError: KindServerError,
	http.StatusServiceUnavailable:  KindServiceUnavailable,
}

// KindFromStatus maps an HTTP status code to its Kind.
func KindFromStatus(code int) Kind {
	if k, ok := statusKinds[code]; ok {
		return k
	}
	return KindGeneric
}

// String returns the kind's name
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return kinds[KindGeneric].name
}

// RawResponse is the undecoded HTTP response attached to a failed request.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode parses the raw body into a Response so the error payload and
// rate-limit headers can be inspected the same way as on success.
func (r *RawResponse) Decode() (*Response, error) {
	return NewResponse(r.Body, r.Header)
}

// Error is the single error type returned by the client.
type Error struct {
	Kind       Kind
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Response   *RawResponse // nil for pre-send and transport failures
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = kinds[e.Kind].message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("foxentry: %s (status %d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("foxentry: %s: %s", e.Kind, msg)
}

// Is reports whether target is the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	info, ok := kinds[e.Kind]
	return ok && target == info.sentinel
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether the server rejected the request for rate or credit limits
func (e *Error) IsRateLimited() bool {
	return e.Kind == KindTooManyRequests
}

// IsAuthError reports whether the API key was missing, invalid or lacks access
func (e *Error) IsAuthError() bool {
	return e.Kind == KindUnauthorized || e.Kind == KindForbidden
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var fxErr *Error
	if errors.As(err, &fxErr) {
		return fxErr, true
	}
	return nil, false
}

func newValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newConfigurationError(msg string) *Error {
	return &Error{Kind: KindConfiguration, Message: msg}
}

// newStatusError builds the error for a non-2xx response.
func newStatusError(raw *RawResponse) *Error {
	kind := KindFromStatus(raw.StatusCode)
	msg := kinds[kind].message
	if kind == KindGeneric {
		msg = fmt.Sprintf("Request exception: unexpected status %d %s", raw.StatusCode, http.StatusText(raw.StatusCode))
	}
	return &Error{
		Kind:       kind,
		StatusCode: raw.StatusCode,
		Message:    msg,
		Response:   raw,
	}
}

// newTransportError builds the error for a failure with no HTTP response.
func newTransportError(err error) *Error {
	return &Error{
		Kind:    KindGeneric,
		Message: "Exception: " + err.Error(),
		Err:     err,
	}
}
