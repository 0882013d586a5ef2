package foxentry

import (
	"time"
)

// DefaultTimeout is the timeout of the default HTTP client.
const DefaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API origin.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAPIVersion selects the API version sent in the Api-Version header.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		if version != "" {
			c.apiVersion = version
		}
	}
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithTimeout sets the HTTP timeout. An *http.Client passed to WithHTTPClient
// is copied, not modified; other Doers ignore it. Option order does not matter.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithMaxResponseSize limits the number of response body bytes read.
// Zero means no limit.
func WithMaxResponseSize(size int64) Option {
	return func(c *Client) {
		c.maxResponseSize = size
	}
}

// WithIncludeRequestDetails makes every request built by the client ask for
// request details. Individual calls can still override it.
func WithIncludeRequestDetails(include bool) Option {
	return func(c *Client) {
		c.includeRequestDetails = include
	}
}

// WithDefaultClientInfo attaches end-user info to every request. The values
// are not validated here; use the Request setters for validated input.
func WithDefaultClientInfo(info ClientInfo) Option {
	return func(c *Client) {
		c.defaultClient = &info
	}
}

// RequestOption configures a single resource call.
type RequestOption func(*Request)

// WithCustomID sets the correlation ID for one call.
func WithCustomID(id string) RequestOption {
	return func(r *Request) {
		r.SetCustomID(id)
	}
}

// WithOptions sets the request options for one call.
func WithOptions(options Options) RequestOption {
	return func(r *Request) {
		r.SetOptions(options)
	}
}

// WithClientIP sets the end user's IP for one call.
func WithClientIP(ip string) RequestOption {
	return func(r *Request) {
		r.SetClientIP(ip)
	}
}

// WithClientCountry sets the end user's country for one call.
func WithClientCountry(country string) RequestOption {
	return func(r *Request) {
		r.SetClientCountry(country)
	}
}

// WithClientLocation sets the end user's coordinates for one call.
func WithClientLocation(lat, lon float64) RequestOption {
	return func(r *Request) {
		r.SetClientLocation(lat, lon)
	}
}

// WithRequestDetails toggles request details for one call.
func WithRequestDetails(include bool) RequestOption {
	return func(r *Request) {
		r.IncludeRequestDetails(include)
	}
}

// WithHeader sets an extra header for one call.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.SetHeader(key, value)
	}
}
