package team

import "context"

type Repository interface {
	UpsertTeams(ctx context.Context, items []Team) error
	UpsertVenues(ctx context.Context, items []Venue) error

	// EnsureVenueStubs inserts id-only venue rows for ids not yet present,
	// leaving existing rows untouched.
	EnsureVenueStubs(ctx context.Context, ids []int64) error

	// ExistingTeamIDs filters ids down to those present in core.
	ExistingTeamIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)

	// StubVenueIDs returns up to limit venue ids whose rows carry only the
	// id, oldest first. Input for the venue enrichment backfill.
	StubVenueIDs(ctx context.Context, limit int) ([]int64, error)

	CountTeams(ctx context.Context, leagueID int64, season int) (int, error)
}
