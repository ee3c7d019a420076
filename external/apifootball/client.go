package apifootball

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/resilience"
)

const (
	defaultBaseURL = "https://v3.football.api-sports.io"
	authHeader     = "x-apisports-key"

	maxResponseBytes = 6 << 20
)

var apiKeyHeaderRegex = regexp.MustCompile(`(?i)x-apisports-key[:=][^&\s"']+`)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client is the GET-only transport to API-Football. It carries exactly one
// authentication header and never accepts caller-supplied headers.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.Flight[*Response]
}

// Response is the triple every call returns: HTTP status, observed headers
// (quota accounting reads these), raw body, and the decoded envelope.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Envelope   Envelope
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}
	if httpClient.Transport == nil {
		// upstream calls show up as client spans next to the otelsqlx ones
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(cfg.CircuitBreaker, logger),
		circuitEnabled: cfg.CircuitBreaker.Enabled,
	}
}

// Get performs one authenticated call. Params are encoded in deterministic
// order so raw-archive lookups stay stable across runs.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (*Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State(), "path", path)
			return nil, fmt.Errorf("%w: circuit open", ErrTransport)
		}
	}

	// identical concurrent calls (live loop vs. a maintenance refetch)
	// share one upstream request and one quota token
	key := path + "?" + encodeParams(params)
	resp, err, shared := c.flight.Do(key, func() (*Response, error) {
		return c.execute(ctx, path, params)
	})
	if shared {
		c.logger.DebugContext(ctx, "api-football request deduplicated", "path", path)
	}
	if c.circuitEnabled {
		if err != nil && isCircuitFailure(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return resp, err
}

func (c *Client) execute(ctx context.Context, path string, params map[string]string) (*Response, error) {
	fullURL := c.baseURL + path
	if encoded := encodeParams(params); encoded != "" {
		fullURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set(authHeader, c.apiKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		var urlErr *url.Error
		if crerr.As(err, &urlErr) && urlErr.Timeout() {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, c.sanitize(err.Error()))
		}
		return nil, fmt.Errorf("%w: %s", ErrTransport, c.sanitize(err.Error()))
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	out := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
		if err := sonic.Unmarshal(body, &out.Envelope); err != nil {
			return nil, fmt.Errorf("%w: decode envelope: %v", ErrUnexpectedStatus, err)
		}
		return out, nil
	case httpResp.StatusCode == http.StatusNoContent:
		return out, nil
	case httpResp.StatusCode == http.StatusUnauthorized, httpResp.StatusCode == http.StatusForbidden:
		return out, fmt.Errorf("%w: status=%d", ErrAuthentication, httpResp.StatusCode)
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return out, fmt.Errorf("%w: status=%d", ErrRateLimited, httpResp.StatusCode)
	case httpResp.StatusCode == 499:
		return out, fmt.Errorf("%w: status=%d", ErrTimeout, httpResp.StatusCode)
	case httpResp.StatusCode >= 500:
		return out, fmt.Errorf("%w: status=%d body=%s", ErrServerError, httpResp.StatusCode, abbreviateBody(body))
	default:
		return out, fmt.Errorf("%w: status=%d body=%s", ErrUnexpectedStatus, httpResp.StatusCode, abbreviateBody(body))
	}
}

// Close releases the idle connection pool in the background.
func (c *Client) Close() {
	go c.httpClient.CloseIdleConnections()
}

func (c *Client) sanitize(text string) string {
	text = strings.TrimSpace(text)
	if c.apiKey != "" {
		text = strings.ReplaceAll(text, c.apiKey, "REDACTED")
	}
	return apiKeyHeaderRegex.ReplaceAllString(text, "x-apisports-key=REDACTED")
}

func encodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, key := range keys {
		values.Set(key, params[key])
	}
	return values.Encode()
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(raw))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, ErrServerError) || crerr.Is(err, ErrTransport) || crerr.Is(err, ErrTimeout)
}
