package foxentry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// newTestServer starts a mock API that answers with status and body and
// records every request it receives.
func newTestServer(t *testing.T, status int, body string, header http.Header) (*httptest.Server, *[]recordedRequest, *atomic.Int32) {
	t.Helper()

	var (
		hits     atomic.Int32
		mu       sync.Mutex
		recorded []recordedRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		raw, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(raw, &decoded)
		mu.Lock()
		recorded = append(recorded, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   decoded,
		})
		mu.Unlock()

		for k, v := range header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return server, &recorded, &hits
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(baseURL)}, opts...)
	client, err := NewClient("k", zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client
}

func TestRequestSendEndToEnd(t *testing.T) {
	server, recorded, hits := newTestServer(t, http.StatusOK,
		`{"status":200,"response":{"result":{"isValid":true,"proposal":"valid"}}}`,
		http.Header{"Foxentry-Rate-Limit": {"100"}})
	client := newTestClient(t, server.URL)

	resp, err := client.NewRequest().
		SetEndpoint("email/validate").
		SetQuery(Query{"email": "a@b.com"}).
		Send(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 200, resp.Status())

	result, ok := resp.Result().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["isValid"])
	assert.Equal(t, "valid", result["proposal"])

	rateLimit, err := resp.RateLimit()
	require.NoError(t, err)
	assert.Equal(t, 100, rateLimit)

	req := (*recorded)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/email/validate", req.Path)
	assert.Equal(t, "Bearer k", req.Header.Get("Authorization"))
	assert.Equal(t, "2.0", req.Header.Get("Api-Version"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "false", req.Header.Get("Foxentry-Include-Request-Details"))
	assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))

	payload, ok := req.Body["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"email": "a@b.com"}, payload["query"])
	assert.Contains(t, payload, "customId")
	assert.Nil(t, payload["customId"])
	assert.Nil(t, payload["options"])
	assert.Nil(t, payload["client"])
}

func TestRequestSendStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		kind     Kind
		sentinel error
	}{
		{400, KindBadRequest, ErrBadRequest},
		{401, KindUnauthorized, ErrUnauthorized},
		{402, KindPaymentRequired, ErrPaymentRequired},
		{403, KindForbidden, ErrForbidden},
		{404, KindNotFound, ErrNotFound},
		{429, KindTooManyRequests, ErrTooManyRequests},
		{500, KindServerError, ErrServerError},
		{503, KindServiceUnavailable, ErrServiceUnavailable},
		{418, KindGeneric, ErrGeneric},
		{502, KindGeneric, ErrGeneric},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			server, _, _ := newTestServer(t, tt.status,
				`{"status":`+fmt.Sprint(tt.status)+`,"errors":[{"type":"x"}]}`,
				http.Header{"Foxentry-Rate-Limit-Remaining": {"0"}})
			client := newTestClient(t, server.URL)

			resp, err := client.NewRequest().
				SetEndpoint("email/validate").
				SetQuery(Query{"email": "a@b.com"}).
				Send(t.Context())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.sentinel)

			fxErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, fxErr.Kind)
			assert.Equal(t, tt.status, fxErr.StatusCode)
			require.NotNil(t, fxErr.Response)
			assert.Equal(t, tt.status, fxErr.Response.StatusCode)
			assert.Equal(t, "0", fxErr.Response.Header.Get("Foxentry-Rate-Limit-Remaining"))

			decoded, err := fxErr.Response.Decode()
			require.NoError(t, err)
			assert.NotNil(t, decoded.Errors())
		})
	}
}

func TestRequestSetClientIP(t *testing.T) {
	tests := []struct {
		ip      string
		wantErr bool
	}{
		{"192.168.0.1", false},
		{"2001:db8::1", false},
		{"::1", false},
		{"not-an-ip", true},
		{"256.1.1.1", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			server, recorded, hits := newTestServer(t, http.StatusOK, `{"status":200}`, nil)
			client := newTestClient(t, server.URL)

			req := client.NewRequest().
				SetClientIP(tt.ip).
				SetEndpoint("email/validate").
				SetQuery(Query{"email": "a@b.com"})

			_, err := req.Send(t.Context())

			if tt.wantErr {
				require.Error(t, req.Err())
				assert.ErrorIs(t, req.Err(), ErrValidation)
				assert.ErrorIs(t, err, ErrValidation)
				assert.Equal(t, int32(0), hits.Load())
				return
			}

			require.NoError(t, err)
			info := (*recorded)[0].Body["request"].(map[string]any)["client"].(map[string]any)
			assert.Equal(t, tt.ip, info["ip"])
		})
	}
}

func TestRequestSetClientCountry(t *testing.T) {
	t.Run("three letters rejected", func(t *testing.T) {
		req := newTestClient(t, "http://localhost").NewRequest().SetClientCountry("CZE")
		assert.ErrorIs(t, req.Err(), ErrValidation)
	})

	t.Run("empty rejected", func(t *testing.T) {
		req := newTestClient(t, "http://localhost").NewRequest().SetClientCountry("")
		assert.ErrorIs(t, req.Err(), ErrValidation)
	})

	t.Run("two letters forwarded verbatim", func(t *testing.T) {
		server, recorded, _ := newTestServer(t, http.StatusOK, `{"status":200}`, nil)
		client := newTestClient(t, server.URL)

		_, err := client.NewRequest().
			SetClientCountry("CZ").
			SetClientLocation(91.5, -200).
			SetEndpoint("email/validate").
			SetQuery(Query{"email": "a@b.com"}).
			Send(t.Context())
		require.NoError(t, err)

		info := (*recorded)[0].Body["request"].(map[string]any)["client"].(map[string]any)
		assert.Equal(t, "CZ", info["country"])
		assert.Nil(t, info["ip"])
		assert.Equal(t, map[string]any{"lat": 91.5, "lon": float64(-200)}, info["location"])
	})
}

func TestRequestConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		build   func(*Request) *Request
		message string
	}{
		{
			name:    "no query",
			apiKey:  "k",
			build:   func(r *Request) *Request { return r.SetEndpoint("email/validate") },
			message: "Request query is empty",
		},
		{
			name:    "empty query",
			apiKey:  "k",
			build:   func(r *Request) *Request { return r.SetEndpoint("email/validate").SetQuery(Query{}) },
			message: "Request query is empty",
		},
		{
			name:    "no endpoint",
			apiKey:  "k",
			build:   func(r *Request) *Request { return r.SetQuery(Query{"email": "a@b.com"}) },
			message: "endpoint is not set",
		},
		{
			name:    "no api key",
			apiKey:  "",
			build:   func(r *Request) *Request { return r.SetEndpoint("email/validate").SetQuery(Query{"email": "a@b.com"}) },
			message: "API key is not set",
		},
		{
			name:   "explicit empty api key",
			apiKey: "k",
			build: func(r *Request) *Request {
				return r.SetAuth(" ").SetEndpoint("email/validate").SetQuery(Query{"email": "a@b.com"})
			},
			message: "API key is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, hits := newTestServer(t, http.StatusOK, `{"status":200}`, nil)
			client, err := NewClient(tt.apiKey, zerolog.Nop(), WithBaseURL(server.URL))
			require.NoError(t, err)

			resp, err := tt.build(client.NewRequest()).Send(t.Context())
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, int32(0), hits.Load())
		})
	}
}

func TestRequestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	_, err := client.Email().ValidateAddress(t.Context(), "a@b.com")
	require.Error(t, err)

	fxErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindGeneric, fxErr.Kind)
	assert.Nil(t, fxErr.Response)
	assert.Zero(t, fxErr.StatusCode)
	assert.NotNil(t, fxErr.Unwrap())
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

type failingBody struct{ err error }

func (b failingBody) Read([]byte) (int, error) { return 0, b.err }
func (b failingBody) Close() error             { return nil }

func TestRequestBodyReadFailureKeepsResponse(t *testing.T) {
	cause := errors.New("connection reset")
	doer := doerFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     http.Header{"Foxentry-Rate-Limit-Period": {"60"}},
			Body:       failingBody{err: cause},
		}, nil
	})
	client := newTestClient(t, "http://localhost", WithHTTPClient(doer))

	_, err := client.Email().ValidateAddress(t.Context(), "a@b.com")
	require.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrGeneric)

	fxErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, fxErr.StatusCode)
	require.NotNil(t, fxErr.Response)
	assert.Equal(t, http.StatusTooManyRequests, fxErr.Response.StatusCode)

	resp, err := fxErr.Response.Decode()
	require.NoError(t, err)
	period, err := resp.RateLimitPeriod()
	require.NoError(t, err)
	assert.Equal(t, 60, period)
}

func TestRequestInvalidSuccessBody(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, `<html>oops</html>`, nil)
	client := newTestClient(t, server.URL)

	_, err := client.Email().ValidateAddress(t.Context(), "a@b.com")
	require.Error(t, err)

	fxErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindGeneric, fxErr.Kind)
	require.NotNil(t, fxErr.Response)
	assert.Equal(t, "<html>oops</html>", string(fxErr.Response.Body))
}

func TestRequestMaxResponseSize(t *testing.T) {
	server, _, _ := newTestServer(t, http.StatusOK, `{"status":200,"response":{"result":{"padding":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}}}`, nil)
	client := newTestClient(t, server.URL, WithMaxResponseSize(16))

	_, err := client.Email().ValidateAddress(t.Context(), "a@b.com")
	require.ErrorIs(t, err, ErrResponseTooLarge)
	assert.ErrorIs(t, err, ErrGeneric)
}

func TestRequestStatePersistsAcrossSends(t *testing.T) {
	server, recorded, hits := newTestServer(t, http.StatusOK, `{"status":200}`, nil)
	client := newTestClient(t, server.URL)

	req := client.NewRequest().
		IncludeRequestDetails(true).
		SetCustomID("first").
		SetEndpoint("email/validate").
		SetQuery(Query{"email": "a@b.com"})

	_, err := req.Send(t.Context())
	require.NoError(t, err)

	_, err = req.SetEndpoint("phone/validate").SetQuery(Query{"numberWithPrefix": "+420607123456"}).Send(t.Context())
	require.NoError(t, err)

	require.Equal(t, int32(2), hits.Load())
	second := (*recorded)[1]
	assert.Equal(t, "/phone/validate", second.Path)
	assert.Equal(t, "true", second.Header.Get("Foxentry-Include-Request-Details"))
	assert.Equal(t, "first", second.Body["request"].(map[string]any)["customId"])
}

func TestRequestSetHeaderOverwrites(t *testing.T) {
	req := newTestClient(t, "http://localhost").NewRequest().
		SetHeader("X-Trace", "one").
		SetHeader("X-Trace", "two").
		SetAPIVersion("2.1")

	headers := req.Headers()
	assert.Equal(t, []string{"two"}, headers.Values("X-Trace"))
	assert.Equal(t, "2.1", headers.Get("Api-Version"))
}

func TestRequestClone(t *testing.T) {
	original := newTestClient(t, "http://localhost").NewRequest().
		SetCustomID("a").
		SetQuery(Query{"email": "a@b.com"}).
		SetClientLocation(50.08, 14.43)

	clone := original.Clone()
	clone.SetCustomID("b").SetHeader("X-Extra", "1").SetClientLocation(0, 0)
	clone.query["email"] = "changed@b.com"

	body, err := original.Body()
	require.NoError(t, err)

	var decoded requestBody
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "a", *decoded.Request.CustomID)
	assert.Equal(t, "a@b.com", decoded.Request.Query["email"])
	assert.InDelta(t, 50.08, decoded.Request.Client.Location.Lat, 0.0001)
	assert.Empty(t, original.Headers().Get("X-Extra"))
}

func TestRequestCustomIDAndOptions(t *testing.T) {
	server, recorded, _ := newTestServer(t, http.StatusOK, `{"status":200}`, nil)
	client := newTestClient(t, server.URL)

	_, err := client.NewRequest().
		SetCustomID("order-42").
		SetOptions(Options{"validationType": "extended"}).
		SetEndpoint("email/validate").
		SetQuery(Query{"email": "a@b.com"}).
		Send(t.Context())
	require.NoError(t, err)

	payload := (*recorded)[0].Body["request"].(map[string]any)
	assert.Equal(t, "order-42", payload["customId"])
	assert.Equal(t, map[string]any{"validationType": "extended"}, payload["options"])
}
