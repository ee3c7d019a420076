package rawdata

import (
	"context"
	"time"
)

type Repository interface {
	// Append archives one exchange. Never updates, never deletes.
	Append(ctx context.Context, item Exchange) error

	// CountSince counts archived calls for an endpoint scoped to
	// (league, season) parameters since the given instant. Feeds the
	// pipeline-coverage formula.
	CountSince(ctx context.Context, endpoint string, leagueID int64, season int, since time.Time) (int, error)

	// HasSuccess reports whether at least one archived call for the endpoint
	// and (league, season) completed with HTTP 200 and no envelope errors.
	HasSuccess(ctx context.Context, endpoint string, leagueID int64, season int) (bool, error)

	// FixtureIDsWithCall filters the given fixture ids down to those that
	// already have an archived call for the endpoint (params->fixture).
	FixtureIDsWithCall(ctx context.Context, endpoint string, fixtureIDs []int64) (map[int64]struct{}, error)
}
