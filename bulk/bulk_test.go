package bulk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/foxcheck/foxentry"
)

type fakeCaller struct {
	mu       sync.Mutex
	calls    []string
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     func(query foxentry.Query) error
}

func (f *fakeCaller) Call(ctx context.Context, resource, operation string, query foxentry.Query, opts ...foxentry.RequestOption) (*foxentry.Response, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, resource+"/"+operation)
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	if f.fail != nil {
		if err := f.fail(query); err != nil {
			return nil, err
		}
	}

	return foxentry.NewResponse([]byte(fmt.Sprintf(`{"status":200,"response":{"result":{"echo":%q}}}`, query["email"])), nil)
}

func emailJobs(n int) []Job {
	jobs := make([]Job, n)
	for i := range n {
		email := fmt.Sprintf("user%d@example.com", i)
		jobs[i] = Job{Line: i + 1, Input: email, Query: foxentry.Query{"email": email}}
	}
	return jobs
}

func TestProcessorRun(t *testing.T) {
	caller := &fakeCaller{
		fail: func(q foxentry.Query) error {
			if q["email"] == "user3@example.com" {
				return fmt.Errorf("boom")
			}
			return nil
		},
	}
	processor := NewProcessor(caller, zerolog.Nop(), WithConcurrency(3))

	summary := processor.Run(context.Background(), "email", "validate", emailJobs(20))

	assert.Equal(t, 20, summary.Requested)
	assert.Equal(t, 19, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, caller.calls, 20)
	assert.LessOrEqual(t, caller.peak.Load(), int32(3))
	assert.Equal(t, "20 requested, 19 succeeded, 1 failed", summary.String())

	for i, r := range summary.Results {
		assert.Equal(t, i+1, r.Line, "results keep input order")
		if i == 3 {
			require.Error(t, r.Err)
			assert.Nil(t, r.Response)
			continue
		}
		require.NoError(t, r.Err)
		result := r.Response.Result().(map[string]any)
		assert.Equal(t, r.Input, result["echo"])
	}

	failed := summary.Errors()
	require.Len(t, failed, 1)
	assert.Equal(t, 4, failed[0].Line)
}

func TestProcessorEmpty(t *testing.T) {
	summary := NewProcessor(&fakeCaller{}, zerolog.Nop()).Run(context.Background(), "email", "validate", nil)
	assert.Zero(t, summary.Requested)
	assert.Empty(t, summary.Results)
}

func TestProcessorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	caller := &fakeCaller{}
	summary := NewProcessor(caller, zerolog.Nop()).Run(ctx, "email", "validate", emailJobs(5))

	assert.Equal(t, 5, summary.Failed)
	assert.Empty(t, caller.calls)
	for _, r := range summary.Results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestWithConcurrencyClamp(t *testing.T) {
	assert.Equal(t, 1, NewProcessor(nil, zerolog.Nop(), WithConcurrency(0)).concurrency)
	assert.Equal(t, MaxConcurrency, NewProcessor(nil, zerolog.Nop(), WithConcurrency(1000)).concurrency)
	assert.Equal(t, DefaultConcurrency, NewProcessor(nil, zerolog.Nop()).concurrency)
}

func TestProcessorWithClient(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 2 {
			w.Header().Set("Foxentry-Rate-Limit-Remaining", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":429}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":200,"response":{"result":{"isValid":true}}}`))
	}))
	defer server.Close()

	client, err := foxentry.NewClient("k", zerolog.Nop(), foxentry.WithBaseURL(server.URL))
	require.NoError(t, err)

	summary := NewProcessor(client, zerolog.Nop(), WithConcurrency(1)).
		Run(context.Background(), "email", "validate", emailJobs(3))

	assert.Equal(t, 2, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)
	assert.ErrorIs(t, summary.Results[1].Err, foxentry.ErrTooManyRequests)
}

func TestReadJobs(t *testing.T) {
	input := strings.Join([]string{
		"# addresses to check",
		"info@foxentry.com",
		"",
		`{"email":"sales@foxentry.com","extra":1}`,
		"  spaced@foxentry.com  ",
	}, "\n")

	jobs, err := ReadJobs(strings.NewReader(input), "email")
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, 2, jobs[0].Line)
	assert.Equal(t, foxentry.Query{"email": "info@foxentry.com"}, jobs[0].Query)

	assert.Equal(t, 4, jobs[1].Line)
	assert.Equal(t, "sales@foxentry.com", jobs[1].Query["email"])
	assert.Equal(t, float64(1), jobs[1].Query["extra"])

	assert.Equal(t, foxentry.Query{"email": "spaced@foxentry.com"}, jobs[2].Query)
}

func TestReadJobsErrors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		_, err := ReadJobs(strings.NewReader("ok@x.com\n{broken"), "email")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("plain value without field", func(t *testing.T) {
		_, err := ReadJobs(strings.NewReader("+420607123456"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs a query field")
	})

	t.Run("json without field", func(t *testing.T) {
		jobs, err := ReadJobs(strings.NewReader(`{"numberWithPrefix":"+420607123456"}`), "")
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})
}

func TestDefaultFields(t *testing.T) {
	assert.Equal(t, "email", DefaultFields["email/validate"])
	assert.Equal(t, "value", DefaultFields["email/search"])
	assert.Empty(t, DefaultFields["phone/validate"])
}
