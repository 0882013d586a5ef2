package foxentry

import (
	"context"
)

// Endpoints served by the API.
const (
	EndpointCompanyValidate  = "company/validate"
	EndpointCompanySearch    = "company/search"
	EndpointCompanyGet       = "company/get"
	EndpointEmailValidate    = "email/validate"
	EndpointEmailSearch      = "email/search"
	EndpointLocationValidate = "location/validate"
	EndpointLocationSearch   = "location/search"
	EndpointLocationGet      = "location/get"
	EndpointLocationLocalize = "location/localize"
	EndpointNameValidate     = "name/validate"
	EndpointPhoneValidate    = "phone/validate"
)

// Endpoints lists the operations of every resource.
var Endpoints = map[string][]string{
	"company":  {"validate", "search", "get"},
	"email":    {"validate", "search"},
	"location": {"validate", "search", "get", "localize"},
	"name":     {"validate"},
	"phone":    {"validate"},
}

type resource struct {
	client *Client
}

func (r resource) send(ctx context.Context, endpoint string, query Query, opts []RequestOption) (*Response, error) {
	req := r.client.NewRequest()
	for _, opt := range opts {
		opt(req)
	}
	return req.SetEndpoint(endpoint).SetQuery(query).Send(ctx)
}

// Company validates, searches and retrieves companies.
type Company struct{ resource }

// Validate validates company data.
func (c Company) Validate(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, EndpointCompanyValidate, query, opts)
}

// Search searches companies by name, registration, tax or VAT number.
func (c Company) Search(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, EndpointCompanySearch, query, opts)
}

// Get retrieves a company by its identifier.
func (c Company) Get(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, EndpointCompanyGet, query, opts)
}

// Email validates and searches email addresses.
type Email struct{ resource }

// Validate validates an email query.
func (e Email) Validate(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return e.send(ctx, EndpointEmailValidate, query, opts)
}

// ValidateAddress validates a single address.
func (e Email) ValidateAddress(ctx context.Context, email string, opts ...RequestOption) (*Response, error) {
	return e.Validate(ctx, Query{"email": email}, opts...)
}

// Search suggests addresses for a partial input.
func (e Email) Search(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return e.send(ctx, EndpointEmailSearch, query, opts)
}

// SearchValue searches with a single partial value.
func (e Email) SearchValue(ctx context.Context, value string, opts ...RequestOption) (*Response, error) {
	return e.Search(ctx, Query{"value": value}, opts...)
}

// Location validates, searches, retrieves and localizes addresses.
type Location struct{ resource }

// Validate validates an address.
func (l Location) Validate(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return l.send(ctx, EndpointLocationValidate, query, opts)
}

// Search searches streets, cities, zip codes or full addresses.
func (l Location) Search(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return l.send(ctx, EndpointLocationSearch, query, opts)
}

// Get retrieves a location by its identifier.
func (l Location) Get(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return l.send(ctx, EndpointLocationGet, query, opts)
}

// Localize finds addresses near coordinates.
func (l Location) Localize(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return l.send(ctx, EndpointLocationLocalize, query, opts)
}

// Name validates personal names.
type Name struct{ resource }

// Validate validates a name query.
func (n Name) Validate(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return n.send(ctx, EndpointNameValidate, query, opts)
}

// Phone validates phone numbers.
type Phone struct{ resource }

// Validate validates a phone query.
func (p Phone) Validate(ctx context.Context, query Query, opts ...RequestOption) (*Response, error) {
	return p.send(ctx, EndpointPhoneValidate, query, opts)
}

// Call dispatches a query to resource/operation, e.g. ("location", "localize").
// It returns a configuration error for an unknown pair.
func (c *Client) Call(ctx context.Context, resourceName, operation string, query Query, opts ...RequestOption) (*Response, error) {
	for _, op := range Endpoints[resourceName] {
		if op == operation {
			r := resource{client: c}
			return r.send(ctx, resourceName+"/"+operation, query, opts)
		}
	}
	return nil, newConfigurationError("unknown endpoint " + resourceName + "/" + operation)
}
