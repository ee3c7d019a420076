package usecase

import (
	"context"
	"time"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/rawdata"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
)

// Fetcher is the one path every job takes to the upstream API: token first,
// then the call, then quota accounting and raw archival.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) (*apifootball.Response, error)
}

type HTTPFetcher struct {
	client *apifootball.Client
	bucket *ratelimit.Bucket
	raw    rawdata.Repository
	logger *logging.Logger
	dryRun bool
}

func NewHTTPFetcher(client *apifootball.Client, bucket *ratelimit.Bucket, raw rawdata.Repository, logger *logging.Logger, dryRun bool) *HTTPFetcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &HTTPFetcher{client: client, bucket: bucket, raw: raw, logger: logger, dryRun: dryRun}
}

// Fetch blocks on a token, performs the call, feeds observed quota headers
// back to the limiter, and archives the exchange. Envelope-level errors
// (rateLimit on HTTP 200) surface after archival, so the raw tier keeps the
// evidence.
func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string, params map[string]string) (*apifootball.Response, error) {
	if err := f.bucket.Acquire(ctx); err != nil {
		return nil, err
	}

	resp, err := f.client.Get(ctx, endpoint, params)
	if resp != nil {
		f.bucket.UpdateFromHeaders(resp.Header)
		f.archive(ctx, endpoint, params, resp)
	}
	if err != nil {
		return resp, err
	}
	if envErr := resp.Envelope.Err(); envErr != nil {
		return resp, envErr
	}
	return resp, nil
}

func (f *HTTPFetcher) archive(ctx context.Context, endpoint string, params map[string]string, resp *apifootball.Response) {
	if f.dryRun {
		return
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	item := rawdata.Exchange{
		Endpoint:  endpoint,
		Params:    params,
		Status:    resp.StatusCode,
		Headers:   headers,
		Body:      resp.Body,
		Errors:    resp.Envelope.Errors.Map(),
		Results:   resp.Envelope.Results,
		FetchedAt: time.Now().UTC(),
	}
	if err := f.raw.Append(ctx, item); err != nil {
		f.logger.ErrorContext(ctx, "raw archive append failed", "endpoint", endpoint, "error", err)
	}
}
