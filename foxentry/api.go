package foxentry

import (
	"context"
	"net/http"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*http.Client)(nil)

// Validator is implemented by resources with a validate endpoint
type Validator interface {
	Validate(ctx context.Context, query Query, opts ...RequestOption) (*Response, error)
}

// Searcher is implemented by resources with a search endpoint
type Searcher interface {
	Search(ctx context.Context, query Query, opts ...RequestOption) (*Response, error)
}

// Getter is implemented by resources with a get endpoint
type Getter interface {
	Get(ctx context.Context, query Query, opts ...RequestOption) (*Response, error)
}

var (
	_ Validator = Company{}
	_ Validator = Email{}
	_ Validator = Location{}
	_ Validator = Name{}
	_ Validator = Phone{}
	_ Searcher  = Company{}
	_ Searcher  = Email{}
	_ Searcher  = Location{}
	_ Getter    = Company{}
	_ Getter    = Location{}
)
