package usecase

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/standing"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

const standingsRoundRobinJob = "daily_standings"

// StandingsService replaces league tables wholesale. The daily job walks the
// tracked list a few pairs per run through a persisted round-robin cursor, so
// every pair gets refreshed across consecutive days without burning the quota
// in one go.
type StandingsService struct {
	fetcher   Fetcher
	standings standing.Repository
	resolver  *DependencyResolver
	scope     *scope.Resolver
	progress  progress.Repository
	logger    *logging.Logger
}

func NewStandingsService(fetcher Fetcher, standingRepo standing.Repository, resolver *DependencyResolver, scopeResolver *scope.Resolver, progressRepo progress.Repository, logger *logging.Logger) *StandingsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StandingsService{
		fetcher:   fetcher,
		standings: standingRepo,
		resolver:  resolver,
		scope:     scopeResolver,
		progress:  progressRepo,
		logger:    logger,
	}
}

// RefreshDaily refreshes up to pairsPerRun tracked pairs starting at the
// persisted cursor, then advances it. The cursor wraps and bumps the lap
// counter when a full pass completes.
func (s *StandingsService) RefreshDaily(ctx context.Context, tracked []league.Tracked, pairsPerRun int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "StandingsService.RefreshDaily")
	defer span.End()

	pairs, _ := s.scope.Split(ctx, "/standings", trackedPairs(tracked))
	if len(pairs) == 0 {
		return 0, nil
	}
	if pairsPerRun <= 0 || pairsPerRun > len(pairs) {
		pairsPerRun = len(pairs)
	}

	cursor, _, err := s.progress.GetRoundRobin(ctx, standingsRoundRobinJob)
	if err != nil {
		return 0, crerr.Wrap(err, "load standings cursor")
	}
	cursor.JobID = standingsRoundRobinJob
	if cursor.Position >= len(pairs) {
		cursor.Position = 0
	}

	done := 0
	for i := 0; i < pairsPerRun; i++ {
		pair := pairs[cursor.Position]

		err := s.refreshPair(ctx, pair.LeagueID, pair.Season)
		if err != nil {
			s.logger.ErrorContext(ctx, "standings refresh failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			if isFatal(err) {
				return done, err
			}
		} else {
			done++
		}

		cursor.Position++
		if cursor.Position >= len(pairs) {
			cursor.Position = 0
			cursor.Lap++
		}
	}

	if err := s.progress.UpsertRoundRobin(ctx, cursor); err != nil {
		return done, crerr.Wrap(err, "persist standings cursor")
	}
	s.logger.InfoContext(ctx, "standings refresh pass complete",
		"refreshed", done, "position", cursor.Position, "lap", cursor.Lap)
	return done, nil
}

// RefreshAll refreshes every in-scope tracked pair in one run; the seasonal
// backfill path.
func (s *StandingsService) RefreshAll(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "StandingsService.RefreshAll")
	defer span.End()

	pairs, _ := s.scope.Split(ctx, "/standings", trackedPairs(tracked))

	done := 0
	for _, pair := range pairs {
		if err := s.refreshPair(ctx, pair.LeagueID, pair.Season); err != nil {
			s.logger.ErrorContext(ctx, "standings backfill failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			if isFatal(err) {
				return done, err
			}
			continue
		}
		done++
	}
	return done, nil
}

// refreshPair fetches one table and replaces it. When the table references
// teams core does not know, the replacement is refused rather than written
// with broken FKs.
func (s *StandingsService) refreshPair(ctx context.Context, leagueID int64, season int) error {
	resp, err := s.fetcher.Fetch(ctx, "/standings", map[string]string{
		"league": fmt.Sprint(leagueID),
		"season": fmt.Sprint(season),
	})
	if err != nil {
		return err
	}

	rows, skipped := transform.Standings(resp.Envelope.Response)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "standing items skipped",
			"league_id", leagueID, "season", season, "skipped", skipped)
	}
	if len(rows) == 0 {
		// an empty upstream table never wipes a previously written one
		s.logger.WarnContext(ctx, "standings response empty, keeping existing table",
			"league_id", leagueID, "season", season)
		return nil
	}

	if err := s.resolver.EnsureLeague(ctx, leagueID, season); err != nil {
		return err
	}
	missing, err := s.resolver.MissingReferencedTeams(ctx, standingTeamIDs(rows))
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		if err := s.resolver.EnsureTeams(ctx, leagueID, season, missing); err != nil {
			return err
		}
		missing, err = s.resolver.MissingReferencedTeams(ctx, standingTeamIDs(rows))
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return crerr.Wrapf(ErrDependencyUnavailable,
				"standings for league %d season %d reference %d unknown teams", leagueID, season, len(missing))
		}
	}

	if err := s.standings.Replace(ctx, leagueID, season, rows); err != nil {
		return crerr.Wrap(err, "replace standings")
	}
	return nil
}

func standingTeamIDs(rows []standing.Row) []int64 {
	seen := make(map[int64]struct{}, len(rows))
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.TeamID]; ok {
			continue
		}
		seen[row.TeamID] = struct{}{}
		out = append(out, row.TeamID)
	}
	return out
}

func trackedPairs(tracked []league.Tracked) []scope.LeagueSeason {
	pairs := make([]scope.LeagueSeason, 0, len(tracked))
	for _, t := range tracked {
		pairs = append(pairs, scope.LeagueSeason{LeagueID: t.ID, Season: t.Season})
	}
	return pairs
}
