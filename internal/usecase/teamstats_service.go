package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	ants "github.com/panjf2000/ants/v2"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/teamstats"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

const teamStatsWorkerCount = 4

// TeamStatsService spreads the expensive one-call-per-team season statistics
// across days: each run discovers teams from ingested fixtures, then refreshes
// only the stalest cursors up to the per-run ceiling.
type TeamStatsService struct {
	fetcher  Fetcher
	stats    teamstats.Repository
	fixtures fixture.Repository
	progress progress.Repository
	scope    *scope.Resolver
	logger   *logging.Logger
}

func NewTeamStatsService(fetcher Fetcher, statsRepo teamstats.Repository, fixtureRepo fixture.Repository, progressRepo progress.Repository, scopeResolver *scope.Resolver, logger *logging.Logger) *TeamStatsService {
	if logger == nil {
		logger = logging.Default()
	}
	return &TeamStatsService{
		fetcher:  fetcher,
		stats:    statsRepo,
		fixtures: fixtureRepo,
		progress: progressRepo,
		scope:    scopeResolver,
		logger:   logger,
	}
}

// Sync runs one refresh pass: discover, pick the stalest cursors within the
// ceiling, fetch concurrently, advance each cursor on success.
func (s *TeamStatsService) Sync(ctx context.Context, tracked []league.Tracked, maxPerRun int, refreshInterval time.Duration) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "TeamStatsService.Sync")
	defer span.End()

	pairs, _ := s.scope.Split(ctx, "/teams/statistics", trackedPairs(tracked))
	if len(pairs) == 0 {
		return 0, nil
	}
	if maxPerRun <= 0 {
		maxPerRun = len(pairs) * teamStatsWorkerCount
	}

	candidates, err := s.collectCandidates(ctx, pairs, maxPerRun, refreshInterval)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		s.logger.InfoContext(ctx, "team statistics up to date", "pairs", len(pairs))
		return 0, nil
	}

	pool, err := ants.NewPool(teamStatsWorkerCount)
	if err != nil {
		return 0, crerr.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	var done atomic.Int32
	var failed atomic.Int32
	var fatalOnce sync.Once
	var fatalErr error

	var workers sync.WaitGroup
	for _, cursor := range candidates {
		cursor := cursor
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			if err := s.refreshTeam(ctx, cursor); err != nil {
				failed.Add(1)
				s.logger.ErrorContext(ctx, "team statistics refresh failed",
					"league_id", cursor.LeagueID, "season", cursor.Season, "team_id", cursor.TeamID, "error", err)
				if isFatal(err) {
					fatalOnce.Do(func() { fatalErr = err })
				}
				return
			}
			done.Add(1)
		}); err != nil {
			workers.Done()
			return int(done.Load()), crerr.Wrap(err, "submit to worker pool")
		}
	}
	workers.Wait()

	s.logger.InfoContext(ctx, "team statistics pass complete",
		"refreshed", done.Load(), "failed", failed.Load(), "candidates", len(candidates))
	return int(done.Load()), fatalErr
}

// collectCandidates seeds cursors for newly seen teams and returns the
// stalest ones, capped by the run ceiling and filtered by the refresh
// interval.
func (s *TeamStatsService) collectCandidates(ctx context.Context, pairs []scope.LeagueSeason, maxPerRun int, refreshInterval time.Duration) ([]progress.TeamStatsCursor, error) {
	now := time.Now().UTC()
	var candidates []progress.TeamStatsCursor

	for _, pair := range pairs {
		teamIDs, err := s.fixtures.DistinctTeamIDs(ctx, pair.LeagueID, pair.Season)
		if err != nil {
			return nil, crerr.Wrap(err, "discover teams from fixtures")
		}
		if err := s.progress.SeedTeamStatsCursors(ctx, pair.LeagueID, pair.Season, teamIDs); err != nil {
			return nil, crerr.Wrap(err, "seed team statistics cursors")
		}

		remaining := maxPerRun - len(candidates)
		if remaining <= 0 {
			break
		}
		cursors, err := s.progress.OldestTeamStatsCursors(ctx, pair.LeagueID, pair.Season, remaining)
		if err != nil {
			return nil, crerr.Wrap(err, "load stalest team statistics cursors")
		}
		for _, cursor := range cursors {
			if cursor.LastFetchedAt != nil && now.Sub(*cursor.LastFetchedAt) < refreshInterval {
				// cursors come back stalest first, the rest are fresher still
				break
			}
			candidates = append(candidates, cursor)
		}
	}
	return candidates, nil
}

func (s *TeamStatsService) refreshTeam(ctx context.Context, cursor progress.TeamStatsCursor) error {
	resp, err := s.fetcher.Fetch(ctx, "/teams/statistics", map[string]string{
		"league": fmt.Sprint(cursor.LeagueID),
		"season": fmt.Sprint(cursor.Season),
		"team":   fmt.Sprint(cursor.TeamID),
	})
	if err != nil {
		return err
	}
	if len(resp.Envelope.Response) == 0 {
		return crerr.New("team statistics response empty")
	}

	row, err := transform.SeasonStats(resp.Envelope.Response[0])
	if err != nil {
		return err
	}
	if err := s.stats.Upsert(ctx, row); err != nil {
		return crerr.Wrap(err, "upsert team statistics")
	}

	fetchedAt := time.Now().UTC()
	return s.progress.UpsertTeamStatsCursor(ctx, progress.TeamStatsCursor{
		LeagueID:      cursor.LeagueID,
		Season:        cursor.Season,
		TeamID:        cursor.TeamID,
		LastFetchedAt: &fetchedAt,
	})
}
