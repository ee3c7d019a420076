package usecase

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/team"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

// DependencyResolver makes FK-constrained writes safe: it guarantees the
// referenced league, teams, and venues exist in core before fixtures or
// standings touch them.
type DependencyResolver struct {
	fetcher  Fetcher
	leagues  league.Repository
	teams    team.Repository
	progress progress.Repository
	logger   *logging.Logger
}

func NewDependencyResolver(fetcher Fetcher, leagues league.Repository, teams team.Repository, progressRepo progress.Repository, logger *logging.Logger) *DependencyResolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &DependencyResolver{
		fetcher:  fetcher,
		leagues:  leagues,
		teams:    teams,
		progress: progressRepo,
		logger:   logger,
	}
}

// EnsureForFixtures runs the full pre-write sequence for one
// (league, season) fixture group: league metadata, team bootstrap, venue
// stubs.
func (r *DependencyResolver) EnsureForFixtures(ctx context.Context, key transform.LeagueSeason, group transform.FixtureRows) error {
	ctx, span := startUsecaseSpan(ctx, "DependencyResolver.EnsureForFixtures")
	defer span.End()

	if err := r.EnsureLeague(ctx, key.LeagueID, key.Season); err != nil {
		return err
	}

	teamIDs := referencedTeamIDs(group.Fixtures)
	if err := r.EnsureTeams(ctx, key.LeagueID, key.Season, teamIDs); err != nil {
		return err
	}

	return r.EnsureVenues(ctx, group.Venues)
}

// EnsureLeague fetches /leagues?id=L when the league is absent from core or
// its season array lacks the needed season with start/end dates.
func (r *DependencyResolver) EnsureLeague(ctx context.Context, leagueID int64, season int) error {
	existing, found, err := r.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return crerr.Wrap(err, "look up league")
	}
	if found && existing.HasSeasonDates(season) {
		return nil
	}

	resp, err := r.fetcher.Fetch(ctx, "/leagues", map[string]string{"id": fmt.Sprint(leagueID)})
	if err != nil {
		return crerr.Mark(crerr.Wrap(err, "fetch league metadata"), ErrDependencyUnavailable)
	}

	rows, skipped := transform.Leagues(resp.Envelope.Response, nil)
	if skipped > 0 {
		r.logger.WarnContext(ctx, "league metadata items skipped", "league_id", leagueID, "skipped", skipped)
	}
	if len(rows) == 0 {
		return crerr.Wrapf(ErrDependencyUnavailable, "league %d not returned by upstream", leagueID)
	}
	if err := r.leagues.Upsert(ctx, rows); err != nil {
		return crerr.Wrap(err, "upsert league metadata")
	}
	return nil
}

// EnsureTeams checks the per-(league, season) bootstrap marker, verifies no
// referenced team is missing, and refreshes the roster when needed. The
// marker flips back to incomplete the moment a referenced id is absent.
func (r *DependencyResolver) EnsureTeams(ctx context.Context, leagueID int64, season int, referenced []int64) error {
	marker, found, err := r.progress.GetTeamBootstrap(ctx, leagueID, season)
	if err != nil {
		return crerr.Wrap(err, "look up team bootstrap marker")
	}

	if found && marker.Completed {
		missing, err := r.missingTeams(ctx, referenced)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			return nil
		}
		r.logger.WarnContext(ctx, "bootstrap marker stale, referenced teams missing",
			"league_id", leagueID, "season", season, "missing", len(missing))
	}

	if err := r.refreshTeams(ctx, leagueID, season); err != nil {
		markerErr := r.progress.UpsertTeamBootstrap(ctx, progress.TeamBootstrap{
			LeagueID:  leagueID,
			Season:    season,
			Completed: false,
			LastError: err.Error(),
		})
		if markerErr != nil {
			r.logger.ErrorContext(ctx, "persist team bootstrap failure marker failed",
				"league_id", leagueID, "error", markerErr)
		}
		return err
	}

	if err := r.progress.UpsertTeamBootstrap(ctx, progress.TeamBootstrap{
		LeagueID:  leagueID,
		Season:    season,
		Completed: true,
	}); err != nil {
		return err
	}

	// the roster call succeeded but the referenced ids must actually be there
	// before any FK-bearing write proceeds
	missing, err := r.missingTeams(ctx, referenced)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return crerr.Wrapf(ErrDependencyUnavailable,
			"league %d season %d roster lacks %d referenced teams", leagueID, season, len(missing))
	}
	return nil
}

func (r *DependencyResolver) refreshTeams(ctx context.Context, leagueID int64, season int) error {
	resp, err := r.fetcher.Fetch(ctx, "/teams", map[string]string{
		"league": fmt.Sprint(leagueID),
		"season": fmt.Sprint(season),
	})
	if err != nil {
		return crerr.Wrap(err, "fetch team roster")
	}

	rows := transform.Teams(resp.Envelope.Response)
	if rows.Skipped > 0 {
		r.logger.WarnContext(ctx, "team roster items skipped", "league_id", leagueID, "skipped", rows.Skipped)
	}

	// venues first so the team FK holds
	if err := r.teams.UpsertVenues(ctx, rows.Venues); err != nil {
		return crerr.Wrap(err, "upsert roster venues")
	}
	if err := r.teams.UpsertTeams(ctx, rows.Teams); err != nil {
		return crerr.Wrap(err, "upsert roster teams")
	}
	return nil
}

// EnsureVenues pre-creates minimal venue rows so fixture FKs hold; full
// details arrive later through the bounded enrichment backfill.
func (r *DependencyResolver) EnsureVenues(ctx context.Context, refs []transform.VenueRef) error {
	if len(refs) == 0 {
		return nil
	}

	venues := make([]team.Venue, 0, len(refs))
	for _, ref := range refs {
		venues = append(venues, team.Venue{ID: ref.ID, Name: ref.Name, City: ref.City})
	}
	if err := r.teams.UpsertVenues(ctx, venues); err != nil {
		return crerr.Wrap(err, "pre-create venues")
	}
	return nil
}

// MissingReferencedTeams reports which of the given ids are absent from
// core; standings replacement refuses to run when any are.
func (r *DependencyResolver) MissingReferencedTeams(ctx context.Context, ids []int64) ([]int64, error) {
	return r.missingTeams(ctx, ids)
}

func (r *DependencyResolver) missingTeams(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	existing, err := r.teams.ExistingTeamIDs(ctx, ids)
	if err != nil {
		return nil, crerr.Wrap(err, "check referenced teams")
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func referencedTeamIDs(fixtures []fixture.Fixture) []int64 {
	seen := make(map[int64]struct{}, len(fixtures)*2)
	out := make([]int64, 0, len(fixtures)*2)
	for _, f := range fixtures {
		for _, id := range []int64{f.HomeTeamID, f.AwayTeamID} {
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
