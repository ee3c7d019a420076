package progress

import "context"

type Repository interface {
	GetBackfill(ctx context.Context, jobID string, leagueID int64, season int) (Backfill, bool, error)
	UpsertBackfill(ctx context.Context, item Backfill) error

	GetTeamBootstrap(ctx context.Context, leagueID int64, season int) (TeamBootstrap, bool, error)
	UpsertTeamBootstrap(ctx context.Context, item TeamBootstrap) error

	GetTeamStatsCursor(ctx context.Context, leagueID int64, season int, teamID int64) (TeamStatsCursor, bool, error)
	UpsertTeamStatsCursor(ctx context.Context, item TeamStatsCursor) error

	// SeedTeamStatsCursors inserts never-fetched cursors for the given teams,
	// leaving existing rows and their timestamps untouched.
	SeedTeamStatsCursors(ctx context.Context, leagueID int64, season int, teamIDs []int64) error

	// OldestTeamStatsCursors returns up to limit cursors for the
	// (league, season) ordered by last fetch ascending, never-fetched first.
	OldestTeamStatsCursors(ctx context.Context, leagueID int64, season int, limit int) ([]TeamStatsCursor, error)

	GetRoundRobin(ctx context.Context, jobID string) (RoundRobin, bool, error)
	UpsertRoundRobin(ctx context.Context, item RoundRobin) error
}
