package usecase

import (
	"context"
	"fmt"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/scorer"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

// ScorerService refreshes the per-(league, season) top-scorer table. Rank is
// the position in the response array, not an upstream field.
type ScorerService struct {
	fetcher Fetcher
	scorers scorer.Repository
	scope   *scope.Resolver
	logger  *logging.Logger
}

func NewScorerService(fetcher Fetcher, scorerRepo scorer.Repository, scopeResolver *scope.Resolver, logger *logging.Logger) *ScorerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScorerService{fetcher: fetcher, scorers: scorerRepo, scope: scopeResolver, logger: logger}
}

func (s *ScorerService) Sync(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "ScorerService.Sync")
	defer span.End()

	pairs, _ := s.scope.Split(ctx, "/players/topscorers", trackedPairs(tracked))

	total := 0
	for _, pair := range pairs {
		resp, err := s.fetcher.Fetch(ctx, "/players/topscorers", map[string]string{
			"league": fmt.Sprint(pair.LeagueID),
			"season": fmt.Sprint(pair.Season),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "top scorers fetch failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			if isFatal(err) {
				return total, err
			}
			continue
		}

		rows, skipped := transform.TopScorers(pair.LeagueID, pair.Season, resp.Envelope.Response)
		if skipped > 0 {
			s.logger.WarnContext(ctx, "top scorer items skipped",
				"league_id", pair.LeagueID, "season", pair.Season, "skipped", skipped)
		}
		if err := s.scorers.Upsert(ctx, rows); err != nil {
			s.logger.ErrorContext(ctx, "top scorers write failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			continue
		}
		total += len(rows)
	}

	s.logger.InfoContext(ctx, "top scorers sync complete", "pairs", len(pairs), "rows", total)
	return total, nil
}
