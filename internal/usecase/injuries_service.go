package usecase

import (
	"context"
	"fmt"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/injury"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

// InjuryService ingests the per-(league, season) injury list. Rows are keyed
// by a derived hash because the upstream carries no stable injury id.
type InjuryService struct {
	fetcher  Fetcher
	injuries injury.Repository
	scope    *scope.Resolver
	logger   *logging.Logger
}

func NewInjuryService(fetcher Fetcher, injuryRepo injury.Repository, scopeResolver *scope.Resolver, logger *logging.Logger) *InjuryService {
	if logger == nil {
		logger = logging.Default()
	}
	return &InjuryService{fetcher: fetcher, injuries: injuryRepo, scope: scopeResolver, logger: logger}
}

// Sync refreshes injuries for every in-scope tracked pair. Injuries are
// upsert-only; recovered players simply stop appearing in fresh responses.
func (s *InjuryService) Sync(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "InjuryService.Sync")
	defer span.End()

	pairs, _ := s.scope.Split(ctx, "/injuries", trackedPairs(tracked))

	total := 0
	for _, pair := range pairs {
		resp, err := s.fetcher.Fetch(ctx, "/injuries", map[string]string{
			"league": fmt.Sprint(pair.LeagueID),
			"season": fmt.Sprint(pair.Season),
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "injuries fetch failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			if isFatal(err) {
				return total, err
			}
			continue
		}

		rows, skipped := transform.Injuries(resp.Envelope.Response)
		if skipped > 0 {
			s.logger.WarnContext(ctx, "injury items skipped",
				"league_id", pair.LeagueID, "season", pair.Season, "skipped", skipped)
		}
		if err := s.injuries.Upsert(ctx, rows); err != nil {
			s.logger.ErrorContext(ctx, "injuries write failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			continue
		}
		total += len(rows)
	}

	s.logger.InfoContext(ctx, "injuries sync complete", "pairs", len(pairs), "rows", total)
	return total, nil
}
