package injury

import (
	"context"
	"time"
)

type Repository interface {
	Upsert(ctx context.Context, items []Injury) error
	Count(ctx context.Context, leagueID int64, season int) (int, error)
	LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error)
}
