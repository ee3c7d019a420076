package standing

import (
	"context"
	"time"
)

type Repository interface {
	// Replace swaps the full table for (league, season) atomically:
	// delete-then-insert inside one transaction, so readers never observe a
	// partially written table.
	Replace(ctx context.Context, leagueID int64, season int, rows []Row) error

	Count(ctx context.Context, leagueID int64, season int) (int, error)
	LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error)
}
