package teamstats

import (
	"context"
	"time"
)

type Repository interface {
	Upsert(ctx context.Context, item SeasonStats) error
	Count(ctx context.Context, leagueID int64, season int) (int, error)
	LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error)
}
