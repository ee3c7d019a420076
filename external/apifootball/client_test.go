package apifootball

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "secret-key",
	})
}

func TestNewClient_InstrumentsDefaultTransport(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "secret-key"})
	require.IsType(t, &otelhttp.Transport{}, client.httpClient.Transport)

	// a caller-supplied transport stays untouched
	custom := &http.Client{Transport: http.DefaultTransport}
	client = NewClient(ClientConfig{APIKey: "secret-key", HTTPClient: custom})
	require.Same(t, http.DefaultTransport, client.httpClient.Transport)
}

func TestGet_SendsSingleAuthHeader(t *testing.T) {
	var gotKey string
	var gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-apisports-key")
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"get":"status","errors":[],"results":0,"paging":{"current":1,"total":1},"response":[]}`))
	})

	resp, err := client.Get(context.Background(), "/status", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "secret-key", gotKey)
	require.Equal(t, http.MethodGet, gotMethod)
}

func TestGet_DecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"get":"fixtures","parameters":{"live":"all"},"errors":[],"results":2,"paging":{"current":1,"total":1},"response":[{"a":1},{"a":2}]}`))
	})

	resp, err := client.Get(context.Background(), "/fixtures", map[string]string{"live": "all"})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Envelope.Results)
	require.Len(t, resp.Envelope.Response, 2)
	require.NoError(t, resp.Envelope.Err())
}

func TestGet_RateLimitInsideEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"get":"fixtures","errors":{"rateLimit":"Too many requests"},"results":0,"paging":{"current":1,"total":1},"response":[]}`))
	})

	resp, err := client.Get(context.Background(), "/fixtures", nil)
	require.NoError(t, err)
	require.True(t, resp.Envelope.RateLimited())
	require.ErrorIs(t, resp.Envelope.Err(), ErrRateLimited)
}

func TestGet_StatusTaxonomy(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrAuthentication},
		{name: "throttled", status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "client closed request", status: 499, wantErr: ErrTimeout},
		{name: "bad gateway", status: http.StatusBadGateway, wantErr: ErrServerError},
		{name: "teapot", status: http.StatusTeapot, wantErr: ErrUnexpectedStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`oops`))
			})

			resp, err := client.Get(context.Background(), "/fixtures", nil)
			require.ErrorIs(t, err, tc.wantErr)
			require.NotNil(t, resp)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestGet_NoContentReturnsEmptyEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := client.Get(context.Background(), "/timezone", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Zero(t, resp.Envelope.Results)
	require.Empty(t, resp.Envelope.Response)
}

func TestGet_ErrorTextNeverLeaksKey(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "secret-key",
	})

	_, err := client.Get(context.Background(), "/status", nil)
	require.ErrorIs(t, err, ErrTransport)
	require.NotContains(t, err.Error(), "secret-key")
}

func TestEncodeParams_Deterministic(t *testing.T) {
	got := encodeParams(map[string]string{"season": "2024", "league": "39", "date": "2025-08-01"})
	require.Equal(t, "date=2025-08-01&league=39&season=2024", got)
}

func TestErrorField_ObjectAndArrayShapes(t *testing.T) {
	var envelope Envelope
	require.NoError(t, envelope.Errors.UnmarshalJSON([]byte(`{"token":"invalid"}`)))
	require.Equal(t, map[string]string{"token": "invalid"}, envelope.Errors.Map())

	var empty ErrorField
	require.NoError(t, empty.UnmarshalJSON([]byte(`[]`)))
	require.True(t, empty.IsEmpty())
}
