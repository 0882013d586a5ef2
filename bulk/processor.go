package bulk

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/foxcheck/foxentry"
)

const (
	// DefaultConcurrency is the number of requests in flight at once
	DefaultConcurrency = 4
	// MaxConcurrency caps user supplied concurrency
	MaxConcurrency = 64
)

// Caller dispatches one query to a resource operation. *foxentry.Client
// satisfies it.
type Caller interface {
	Call(ctx context.Context, resource, operation string, query foxentry.Query, opts ...foxentry.RequestOption) (*foxentry.Response, error)
}

var _ Caller = (*foxentry.Client)(nil)

// Result is the outcome of one job
type Result struct {
	Job
	Response *foxentry.Response
	Err      error
}

// Summary contains the results of a bulk run, in input order
type Summary struct {
	Requested int
	Succeeded int
	Failed    int
	Results   []Result
}

// Errors returns the failed results
func (s Summary) Errors() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Option configures a Processor
type Option func(*Processor)

// WithConcurrency sets the number of concurrent requests, clamped to
// [1, MaxConcurrency]
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		p.concurrency = min(max(n, 1), MaxConcurrency)
	}
}

// Processor runs many queries against one endpoint with bounded concurrency
type Processor struct {
	caller      Caller
	logger      zerolog.Logger
	concurrency int
}

// NewProcessor creates a new bulk processor
func NewProcessor(caller Caller, logger zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		caller:      caller,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run sends every job to resource/operation. A failing job does not stop the
// others; once ctx is done, jobs not yet started fail with the context error.
func (p *Processor) Run(ctx context.Context, resource, operation string, jobs []Job, opts ...foxentry.RequestOption) Summary {
	summary := Summary{
		Requested: len(jobs),
		Results:   make([]Result, len(jobs)),
	}

	if len(jobs) == 0 {
		return summary
	}

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	var rateLimited atomic.Int32

	for i, job := range jobs {
		g.Go(func() error {
			result := Result{Job: job}

			if err := ctx.Err(); err != nil {
				result.Err = err
				summary.Results[i] = result
				return nil
			}

			result.Response, result.Err = p.caller.Call(ctx, resource, operation, job.Query, opts...)
			if result.Err != nil {
				if fxErr, ok := foxentry.AsError(result.Err); ok && fxErr.IsRateLimited() {
					rateLimited.Add(1)
				}
				p.logger.Warn().
					Err(result.Err).
					Int("line", job.Line).
					Str("endpoint", resource+"/"+operation).
					Msg("Bulk request failed")
			}

			// each goroutine owns its index
			summary.Results[i] = result
			return nil
		})
	}

	// Goroutines never return errors
	_ = g.Wait()

	for _, r := range summary.Results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	if n := rateLimited.Load(); n > 0 {
		p.logger.Warn().
			Int32("count", n).
			Msg("Some requests were rate limited; lower bulk.concurrency")
	}

	p.logger.Info().
		Int("requested", summary.Requested).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Bulk run completed")

	return summary
}

// String implements fmt.Stringer
func (s Summary) String() string {
	return fmt.Sprintf("%d requested, %d succeeded, %d failed", s.Requested, s.Succeeded, s.Failed)
}
