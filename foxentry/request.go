package foxentry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Request headers sent by the client.
const (
	HeaderAuthorization         = "Authorization"
	HeaderAPIVersionRequest     = "Api-Version"
	HeaderContentType           = "Content-Type"
	HeaderAccept                = "Accept"
	HeaderUserAgent             = "User-Agent"
	HeaderIncludeRequestDetails = "Foxentry-Include-Request-Details"

	contentTypeJSON = "application/json"
)

// validate is shared; validator.Validate is safe for concurrent use.
var validate = validator.New()

// Query is the resource-specific query payload. The service accepts
// schema-free queries, so no shape is enforced beyond non-emptiness.
type Query map[string]any

// Options are the resource-specific request options, e.g. dataScope.
type Options map[string]any

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ClientInfo describes the end user on whose behalf a request is made.
type ClientInfo struct {
	IP       *string      `json:"ip"`
	Country  *string      `json:"country"`
	Location *Coordinates `json:"location"`
}

type requestBody struct {
	Request requestPayload `json:"request"`
}

type requestPayload struct {
	CustomID *string     `json:"customId"`
	Query    Query       `json:"query"`
	Options  Options     `json:"options"`
	Client   *ClientInfo `json:"client"`
}

// Request accumulates the parameters of one API call and dispatches it.
//
// Setters return the same *Request so calls can be chained. Setters that
// validate their input record the first failure, which Err reports and Send
// returns without touching the network.
//
// A Request is not safe for concurrent use. State is kept across Send calls:
// sending twice from one builder reuses headers, custom ID, options and
// client info unless they are overwritten. Resource facades avoid this by
// building a fresh Request for every call.
type Request struct {
	doer            Doer
	baseURL         string
	logger          zerolog.Logger
	maxResponseSize int64

	apiKey   string
	headers  http.Header
	customID *string
	query    Query
	options  Options
	client   *ClientInfo
	endpoint string

	err error
}

func newRequest(doer Doer, baseURL string, logger zerolog.Logger, maxResponseSize int64) *Request {
	r := &Request{
		doer:            doer,
		baseURL:         baseURL,
		logger:          logger,
		maxResponseSize: maxResponseSize,
		headers:         make(http.Header),
	}

	r.headers.Set(HeaderIncludeRequestDetails, "false")
	r.headers.Set(HeaderContentType, contentTypeJSON)
	r.headers.Set(HeaderAccept, contentTypeJSON)
	r.headers.Set(HeaderUserAgent, DefaultUserAgent)
	r.headers.Set(HeaderAPIVersionRequest, DefaultAPIVersion)

	return r
}

// SetAuth sets the API key and the bearer Authorization header.
// An empty key is recorded as a configuration error.
func (r *Request) SetAuth(apiKey string) *Request {
	if strings.TrimSpace(apiKey) == "" {
		r.fail(newConfigurationError("API key is empty"))
		return r
	}
	r.apiKey = apiKey
	r.headers.Set(HeaderAuthorization, "Bearer "+apiKey)
	return r
}

// SetAPIVersion selects the API version.
func (r *Request) SetAPIVersion(version string) *Request {
	r.headers.Set(HeaderAPIVersionRequest, version)
	return r
}

// SetHeader sets a header, replacing any earlier value for the same key.
func (r *Request) SetHeader(key, value string) *Request {
	r.headers.Set(key, value)
	return r
}

// IncludeRequestDetails asks the server to echo the request in the response.
func (r *Request) IncludeRequestDetails(include bool) *Request {
	r.headers.Set(HeaderIncludeRequestDetails, strconv.FormatBool(include))
	return r
}

// SetCustomID sets a correlation ID echoed back in request.customId.
func (r *Request) SetCustomID(id string) *Request {
	r.customID = &id
	return r
}

// SetQuery sets the query payload.
func (r *Request) SetQuery(query Query) *Request {
	r.query = query
	return r
}

// SetOptions sets the request options.
func (r *Request) SetOptions(options Options) *Request {
	r.options = options
	return r
}

// SetEndpoint sets the path appended to the base URL, e.g. "email/validate".
func (r *Request) SetEndpoint(endpoint string) *Request {
	r.endpoint = endpoint
	return r
}

// SetClientIP sets the end user's IP address. It must be an IPv4 or IPv6 literal.
func (r *Request) SetClientIP(ip string) *Request {
	if err := validate.Var(ip, "required,ip"); err != nil {
		r.fail(newValidationError("the specified IP address %q is not valid", ip))
		return r
	}
	r.clientInfo().IP = &ip
	return r
}

// SetClientCountry sets the end user's country. Only the ISO-3166-1 alpha-2
// format (two characters) is checked, not membership in the code list.
func (r *Request) SetClientCountry(country string) *Request {
	if err := validate.Var(country, "len=2"); err != nil {
		r.fail(newValidationError("the country code %q does not conform to the ISO-3166-1 alpha-2 format", country))
		return r
	}
	r.clientInfo().Country = &country
	return r
}

// SetClientLocation sets the end user's coordinates. Values are forwarded
// as given, without range checks.
func (r *Request) SetClientLocation(lat, lon float64) *Request {
	r.clientInfo().Location = &Coordinates{Lat: lat, Lon: lon}
	return r
}

// Err returns the first error recorded by a setter.
func (r *Request) Err() error {
	return r.err
}

// Headers returns a copy of the headers that will be sent.
func (r *Request) Headers() http.Header {
	return r.headers.Clone()
}

// Clone returns a deep copy of the builder.
func (r *Request) Clone() *Request {
	c := *r
	c.headers = r.headers.Clone()
	c.query = maps.Clone(r.query)
	c.options = maps.Clone(r.options)
	if r.customID != nil {
		id := *r.customID
		c.customID = &id
	}
	if r.client != nil {
		info := *r.client
		if info.Location != nil {
			loc := *info.Location
			info.Location = &loc
		}
		c.client = &info
	}
	return &c
}

// Body returns the JSON body Send would post.
func (r *Request) Body() ([]byte, error) {
	body, err := json.Marshal(requestBody{
		Request: requestPayload{
			CustomID: r.customID,
			Query:    r.query,
			Options:  r.options,
			Client:   r.client,
		},
	})
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Message: "failed to encode request body", Err: err}
	}
	return body, nil
}

// Send validates the request and performs a single POST. It returns either a
// complete Response or an *Error; never both.
func (r *Request) Send(ctx context.Context) (*Response, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	body, err := r.Body()
	if err != nil {
		return nil, err
	}

	url := r.baseURL + "/" + strings.TrimPrefix(r.endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Message: "failed to create request", Err: err}
	}
	req.Header = r.headers.Clone()

	start := time.Now()
	resp, err := r.doer.Do(req)
	if err != nil {
		r.logger.Debug().Err(err).Str("endpoint", r.endpoint).Msg("Foxentry request failed")
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := r.readBody(resp)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("endpoint", r.endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Foxentry request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(raw)
	}

	response, err := NewResponse(raw.Body, raw.Header)
	if err != nil {
		return nil, &Error{
			Kind:       KindGeneric,
			StatusCode: raw.StatusCode,
			Message:    "Request exception: invalid response body",
			Response:   raw,
			Err:        err,
		}
	}

	return response, nil
}

func (r *Request) validate() error {
	if r.err != nil {
		return r.err
	}
	if r.apiKey == "" {
		return newConfigurationError("API key is not set; set your Foxentry project's API key")
	}
	if r.endpoint == "" {
		return newConfigurationError("endpoint is not set")
	}
	if len(r.query) == 0 {
		return newConfigurationError("Request query is empty")
	}
	return nil
}

func (r *Request) readBody(resp *http.Response) (*RawResponse, error) {
	body := io.Reader(resp.Body)
	if r.maxResponseSize > 0 {
		body = io.LimitReader(resp.Body, r.maxResponseSize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{
			Kind:       KindGeneric,
			StatusCode: resp.StatusCode,
			Message:    "Request exception: failed to read response body",
			Response:   &RawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data},
			Err:        err,
		}
	}

	raw := &RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}

	if r.maxResponseSize > 0 && int64(len(data)) > r.maxResponseSize {
		raw.Body = data[:r.maxResponseSize]
		return nil, &Error{
			Kind:       KindGeneric,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("response body exceeds %d bytes", r.maxResponseSize),
			Response:   raw,
			Err:        ErrResponseTooLarge,
		}
	}

	return raw, nil
}

func (r *Request) clientInfo() *ClientInfo {
	if r.client == nil {
		r.client = &ClientInfo{}
	}
	return r.client
}

func (r *Request) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
