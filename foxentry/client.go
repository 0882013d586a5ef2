package foxentry

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the production API origin
	DefaultBaseURL = "https://api.foxentry.com"
	// DefaultAPIVersion is the API version requested unless overridden
	DefaultAPIVersion = "2.0"
	// Version is the library version reported in the User-Agent
	Version = "1.0.0"
	// DefaultUserAgent identifies this library to the service
	DefaultUserAgent = "FoxentrySdk (Go/" + Version + "; ApiReference/" + DefaultAPIVersion + ")"
)

// Client creates requests for the Foxentry API. Its configuration is fixed
// at construction and every call builds its own Request, so a Client is safe
// for concurrent use.
type Client struct {
	apiKey                string
	apiVersion            string
	baseURL               string
	userAgent             string
	httpClient            Doer
	timeout               time.Duration
	logger                zerolog.Logger
	maxResponseSize       int64
	includeRequestDetails bool
	defaultClient         *ClientInfo
}

// NewClient creates a new Foxentry client. The API key may be empty here;
// requests built from a client without a key fail with a configuration
// error when sent.
func NewClient(apiKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:     apiKey,
		apiVersion: DefaultAPIVersion,
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = c.transport()

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid foxentry base URL %q", c.baseURL)
	}

	if c.apiKey == "" {
		c.logger.Warn().Msg("Foxentry client created without an API key")
	}

	return c, nil
}

// transport resolves the Doer once all options ran. A caller's
// *http.Client is copied before the timeout is applied so it stays untouched.
func (c *Client) transport() Doer {
	switch hc := c.httpClient.(type) {
	case nil:
		timeout := c.timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		return &http.Client{Timeout: timeout}
	case *http.Client:
		if c.timeout <= 0 {
			return hc
		}
		copied := *hc
		copied.Timeout = c.timeout
		return &copied
	default:
		return c.httpClient
	}
}

// BaseURL returns the API origin requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIVersion returns the requested API version.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// NewRequest returns a fresh Request seeded with the client's key, version,
// headers and default client info.
func (c *Client) NewRequest() *Request {
	r := newRequest(c.httpClient, c.baseURL, c.logger, c.maxResponseSize)
	r.SetAPIVersion(c.apiVersion)
	r.SetHeader(HeaderUserAgent, c.userAgent)
	r.IncludeRequestDetails(c.includeRequestDetails)

	if c.apiKey != "" {
		r.SetAuth(c.apiKey)
	}

	if c.defaultClient != nil {
		info := *c.defaultClient
		r.client = &info
	}

	return r
}

// Company returns the company resource.
func (c *Client) Company() Company {
	return Company{resource{client: c}}
}

// Email returns the email resource.
func (c *Client) Email() Email {
	return Email{resource{client: c}}
}

// Location returns the location resource.
func (c *Client) Location() Location {
	return Location{resource{client: c}}
}

// Name returns the name resource.
func (c *Client) Name() Name {
	return Name{resource{client: c}}
}

// Phone returns the phone resource.
func (c *Client) Phone() Phone {
	return Phone{resource{client: c}}
}
