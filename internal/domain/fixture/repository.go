package fixture

import (
	"context"
	"time"
)

type Repository interface {
	Upsert(ctx context.Context, items []Fixture) error
	UpsertDetails(ctx context.Context, items []Details) error

	// UpsertWithDetails writes core rows and their detail rows in one
	// transaction, so a live tick never leaves the two out of step.
	UpsertWithDetails(ctx context.Context, fixtures []Fixture, details []Details) error
	UpsertEvents(ctx context.Context, items []Event) error
	UpsertPlayerStats(ctx context.Context, items []PlayerStat) error
	UpsertTeamStats(ctx context.Context, items []TeamStat) error
	UpsertLineups(ctx context.Context, items []Lineup) error

	GetByID(ctx context.Context, id int64) (Fixture, bool, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Fixture, error)

	// ListLiveStale returns fixtures still marked live whose last update is
	// older than the threshold.
	ListLiveStale(ctx context.Context, olderThan time.Time, limit int) ([]Fixture, error)

	// ListScheduledOverdue returns fixtures still scheduled whose kickoff
	// passed more than the lag ago.
	ListScheduledOverdue(ctx context.Context, kickoffBefore time.Time, limit int) ([]Fixture, error)

	// ListNeedingVerification returns force-finished fixtures awaiting a
	// score check.
	ListNeedingVerification(ctx context.Context, limit int) ([]Fixture, error)

	// ListAutoFinishCandidates returns live fixtures old enough on both
	// clocks to be force-finished: kickoff long past and no recent update.
	ListAutoFinishCandidates(ctx context.Context, kickoffBefore, updatedBefore time.Time, limit int) ([]Fixture, error)

	// ListFinalSince returns finished fixtures updated since the given
	// instant; input for detail capture of recently completed matches.
	ListFinalSince(ctx context.Context, since time.Time, limit int) ([]Fixture, error)

	// ListFinalBetween returns finished fixtures with kickoff inside the
	// window, oldest first; input for the detail backfill sweep.
	ListFinalBetween(ctx context.Context, from, to time.Time, limit int) ([]Fixture, error)

	// ListKickoffBetween returns fixtures of any status with kickoff inside
	// the window; input for the lineup capture around kickoff.
	ListKickoffBetween(ctx context.Context, from, to time.Time, limit int) ([]Fixture, error)

	// DistinctTeamIDs lists every team appearing in fixtures of the
	// (league, season); discovery input for per-team statistics.
	DistinctTeamIDs(ctx context.Context, leagueID int64, season int) ([]int64, error)

	CountByLeagueSeason(ctx context.Context, leagueID int64, season int) (int, error)
	LastUpdateByLeagueSeason(ctx context.Context, leagueID int64, season int) (time.Time, bool, error)
}
