package foxentry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
)

// Response headers set by the Foxentry API.
const (
	HeaderRateLimit          = "Foxentry-Rate-Limit"
	HeaderRateLimitPeriod    = "Foxentry-Rate-Limit-Period"
	HeaderRateLimitRemaining = "Foxentry-Rate-Limit-Remaining"
	HeaderDailyCreditsLeft   = "Foxentry-Daily-Credits-Left"
	HeaderDailyCreditsLimit  = "Foxentry-Daily-Credits-Limit"
	HeaderAPIVersion         = "Foxentry-Api-Version"
)

// Response is a read-only view over a decoded API response and its headers.
// The payload shape is controlled by the server, so sub-objects are exposed
// as generic JSON values (map[string]any, []any, string, float64, bool).
type Response struct {
	data   map[string]any
	header http.Header
}

// NewResponse decodes body and captures header. Header keys are
// canonicalized so lookups are case-insensitive.
func NewResponse(body []byte, header http.Header) (*Response, error) {
	var data map[string]any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	canonical := make(http.Header, len(header))
	for k, v := range header {
		key := textproto.CanonicalMIMEHeaderKey(k)
		canonical[key] = append(canonical[key], v...)
	}

	return &Response{data: data, header: canonical}, nil
}

// Status returns the status field of the body, or 0 if it is absent.
func (r *Response) Status() int {
	if v, ok := r.data["status"].(float64); ok {
		return int(v)
	}
	return 0
}

// Header returns the response headers.
func (r *Response) Header() http.Header {
	return r.header
}

// Raw returns the whole decoded body.
func (r *Response) Raw() map[string]any {
	return r.data
}

// Request returns the echoed request details, or nil. The server only
// includes them when request details were asked for.
func (r *Response) Request() map[string]any {
	return object(r.data["request"])
}

// Response returns the response sub-object, or nil.
func (r *Response) Response() map[string]any {
	return object(r.data["response"])
}

// Errors returns the errors payload, or nil.
func (r *Response) Errors() any {
	return r.data["errors"]
}

// Result returns response.result, falling back to response.results when
// result is missing or empty. Validate endpoints answer with a single result
// object while search and multi-match endpoints answer with a results list.
func (r *Response) Result() any {
	resp := r.Response()
	if result := resp["result"]; !isEmpty(result) {
		return result
	}
	return resp["results"]
}

// DecodeResult decodes Result into v.
func (r *Response) DecodeResult(v any) error {
	raw, err := json.Marshal(r.Result())
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// ResultCorrected returns response.resultCorrected, or nil.
func (r *Response) ResultCorrected() any {
	return r.Response()["resultCorrected"]
}

// Suggestions returns response.suggestions, or nil.
func (r *Response) Suggestions() any {
	return r.Response()["suggestions"]
}

// ResultsCount returns response.resultsCount when present.
func (r *Response) ResultsCount() (int, bool) {
	v, ok := r.Response()["resultsCount"].(float64)
	return int(v), ok
}

// RateLimit returns the number of requests allowed per rate-limit period.
func (r *Response) RateLimit() (int, error) {
	return r.intHeader(HeaderRateLimit)
}

// RateLimitPeriod returns the rate-limit period in seconds.
func (r *Response) RateLimitPeriod() (int, error) {
	return r.intHeader(HeaderRateLimitPeriod)
}

// RateLimitRemaining returns the requests left in the current period.
func (r *Response) RateLimitRemaining() (int, error) {
	return r.intHeader(HeaderRateLimitRemaining)
}

// APIVersion returns the API version that served the request.
func (r *Response) APIVersion() (float64, error) {
	v, err := r.requiredHeader(HeaderAPIVersion)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, headerParseError(HeaderAPIVersion, v, err)
	}
	return f, nil
}

// DailyCreditsLeft returns the remaining daily credits. It returns nil when
// the plan has no daily credit limit.
func (r *Response) DailyCreditsLeft() (*float64, error) {
	v := r.header.Get(HeaderDailyCreditsLeft)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, headerParseError(HeaderDailyCreditsLeft, v, err)
	}
	return &f, nil
}

// DailyCreditsLimit returns the daily credit limit, or nil when the plan has none.
func (r *Response) DailyCreditsLimit() (*int, error) {
	v := r.header.Get(HeaderDailyCreditsLimit)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, headerParseError(HeaderDailyCreditsLimit, v, err)
	}
	return &n, nil
}

func (r *Response) requiredHeader(key string) (string, error) {
	v := r.header.Get(key)
	if v == "" {
		return "", &Error{
			Kind:    KindGeneric,
			Message: fmt.Sprintf("response header %s is missing", key),
			Err:     ErrMissingHeader,
		}
	}
	return v, nil
}

func (r *Response) intHeader(key string) (int, error) {
	v, err := r.requiredHeader(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, headerParseError(key, v, err)
	}
	return n, nil
}

func headerParseError(key, value string, err error) *Error {
	return &Error{
		Kind:    KindGeneric,
		Message: fmt.Sprintf("response header %s has non-numeric value %q", key, value),
		Err:     err,
	}
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// isEmpty reports whether a decoded JSON value carries no data.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}
