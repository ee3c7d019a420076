package usecase

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

const fixturesBackfillJobID = "fixtures_backfill_league_season"

// BackfillService pages through full (league, season) fixture histories with
// a persisted cursor per pair, so a restart or quota stop resumes at the
// first unfetched page.
type BackfillService struct {
	fetcher  Fetcher
	fixtures *FixtureService
	progress progress.Repository
	scope    *scope.Resolver
	logger   *logging.Logger
}

func NewBackfillService(fetcher Fetcher, fixtureService *FixtureService, progressRepo progress.Repository, scopeResolver *scope.Resolver, logger *logging.Logger) *BackfillService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BackfillService{
		fetcher:  fetcher,
		fixtures: fixtureService,
		progress: progressRepo,
		scope:    scopeResolver,
		logger:   logger,
	}
}

// Run advances every incomplete pair by up to maxPagesPerPair pages. Errors
// are persisted on the cursor and the run moves to the next pair.
func (s *BackfillService) Run(ctx context.Context, tracked []league.Tracked, maxPagesPerPair int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "BackfillService.Run")
	defer span.End()

	if maxPagesPerPair <= 0 {
		maxPagesPerPair = 1
	}
	pairs, _ := s.scope.Split(ctx, "/fixtures", trackedPairs(tracked))

	pages := 0
	for _, pair := range pairs {
		advanced, err := s.advancePair(ctx, pair, maxPagesPerPair)
		pages += advanced
		if err != nil {
			s.logger.ErrorContext(ctx, "fixtures backfill pair failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			if isFatal(err) {
				return pages, err
			}
		}
	}

	s.logger.InfoContext(ctx, "fixtures backfill pass complete", "pairs", len(pairs), "pages", pages)
	return pages, nil
}

func (s *BackfillService) advancePair(ctx context.Context, pair scope.LeagueSeason, maxPages int) (int, error) {
	cursor, found, err := s.progress.GetBackfill(ctx, fixturesBackfillJobID, pair.LeagueID, pair.Season)
	if err != nil {
		return 0, crerr.Wrap(err, "load backfill cursor")
	}
	if found && cursor.Completed {
		return 0, nil
	}
	cursor.JobID = fixturesBackfillJobID
	cursor.LeagueID = pair.LeagueID
	cursor.Season = pair.Season
	if cursor.NextPage < 1 {
		cursor.NextPage = 1
	}

	advanced := 0
	for i := 0; i < maxPages; i++ {
		params := map[string]string{
			"league": fmt.Sprint(pair.LeagueID),
			"season": fmt.Sprint(pair.Season),
		}
		if cursor.NextPage > 1 {
			params["page"] = fmt.Sprint(cursor.NextPage)
		}

		resp, err := s.fetcher.Fetch(ctx, "/fixtures", params)
		if err != nil {
			cursor.LastError = err.Error()
			if persistErr := s.progress.UpsertBackfill(ctx, cursor); persistErr != nil {
				s.logger.ErrorContext(ctx, "persist backfill cursor failed",
					"league_id", pair.LeagueID, "error", persistErr)
			}
			return advanced, err
		}

		rows := transform.Fixtures(resp.Envelope.Response)
		if rows.Skipped > 0 {
			s.logger.WarnContext(ctx, "backfill fixture items skipped",
				"league_id", pair.LeagueID, "season", pair.Season, "page", cursor.NextPage, "skipped", rows.Skipped)
		}

		var result FixtureSyncResult
		if _, err := s.fixtures.writeGroups(ctx, rows, &result); err != nil {
			cursor.LastError = err.Error()
			if persistErr := s.progress.UpsertBackfill(ctx, cursor); persistErr != nil {
				s.logger.ErrorContext(ctx, "persist backfill cursor failed",
					"league_id", pair.LeagueID, "error", persistErr)
			}
			return advanced, err
		}
		advanced++

		total := resp.Envelope.Paging.Total
		if len(resp.Envelope.Response) == 0 || cursor.NextPage >= total {
			cursor.Completed = true
			cursor.LastError = ""
			break
		}
		cursor.NextPage++
		cursor.LastError = ""
	}

	if err := s.progress.UpsertBackfill(ctx, cursor); err != nil {
		return advanced, crerr.Wrap(err, "persist backfill cursor")
	}
	if cursor.Completed {
		s.logger.InfoContext(ctx, "fixtures backfill pair complete",
			"league_id", pair.LeagueID, "season", pair.Season)
	}
	return advanced, nil
}
