package usecase

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/reference"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/team"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

// BootstrapService seeds the reference and scope entities: countries,
// timezones, tracked leagues, and per-league team rosters.
type BootstrapService struct {
	fetcher   Fetcher
	reference reference.Repository
	leagues   league.Repository
	teams     team.Repository
	resolver  *DependencyResolver
	logger    *logging.Logger
}

func NewBootstrapService(fetcher Fetcher, referenceRepo reference.Repository, leagueRepo league.Repository, teamRepo team.Repository, resolver *DependencyResolver, logger *logging.Logger) *BootstrapService {
	if logger == nil {
		logger = logging.Default()
	}
	return &BootstrapService{
		fetcher:   fetcher,
		reference: referenceRepo,
		leagues:   leagueRepo,
		teams:     teamRepo,
		resolver:  resolver,
		logger:    logger,
	}
}

// BootstrapCountries runs once per start when the destination is empty,
// unless forced.
func (s *BootstrapService) BootstrapCountries(ctx context.Context, force bool) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "BootstrapService.BootstrapCountries")
	defer span.End()

	if !force {
		count, err := s.reference.CountCountries(ctx)
		if err != nil {
			return 0, crerr.Wrap(err, "count countries")
		}
		if count > 0 {
			s.logger.InfoContext(ctx, "countries already seeded, skipping", "count", count)
			return 0, nil
		}
	}

	resp, err := s.fetcher.Fetch(ctx, "/countries", nil)
	if err != nil {
		return 0, err
	}
	rows, skipped := transform.Countries(resp.Envelope.Response)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "country items skipped", "skipped", skipped)
	}
	if err := s.reference.UpsertCountries(ctx, rows); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "countries bootstrap complete", "count", len(rows))
	return len(rows), nil
}

func (s *BootstrapService) BootstrapTimezones(ctx context.Context, force bool) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "BootstrapService.BootstrapTimezones")
	defer span.End()

	if !force {
		count, err := s.reference.CountTimezones(ctx)
		if err != nil {
			return 0, crerr.Wrap(err, "count timezones")
		}
		if count > 0 {
			s.logger.InfoContext(ctx, "timezones already seeded, skipping", "count", count)
			return 0, nil
		}
	}

	resp, err := s.fetcher.Fetch(ctx, "/timezone", nil)
	if err != nil {
		return 0, err
	}
	rows, skipped := transform.Timezones(resp.Envelope.Response)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "timezone items skipped", "skipped", skipped)
	}
	if err := s.reference.UpsertTimezones(ctx, rows); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "timezones bootstrap complete", "count", len(rows))
	return len(rows), nil
}

// BootstrapLeagues fetches /leagues per distinct tracked season and upserts
// the tracked subset.
func (s *BootstrapService) BootstrapLeagues(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "BootstrapService.BootstrapLeagues")
	defer span.End()

	trackedIDs := make(map[int64]struct{}, len(tracked))
	seasons := make(map[int]struct{})
	for _, t := range tracked {
		trackedIDs[t.ID] = struct{}{}
		seasons[t.Season] = struct{}{}
	}

	total := 0
	for season := range seasons {
		resp, err := s.fetcher.Fetch(ctx, "/leagues", map[string]string{"season": fmt.Sprint(season)})
		if err != nil {
			// per-season errors do not abort the other seasons
			s.logger.ErrorContext(ctx, "leagues bootstrap fetch failed", "season", season, "error", err)
			if isFatal(err) {
				return total, err
			}
			continue
		}

		rows, skipped := transform.Leagues(resp.Envelope.Response, trackedIDs)
		if skipped > 0 {
			s.logger.WarnContext(ctx, "league items skipped", "season", season, "skipped", skipped)
		}
		if err := s.leagues.Upsert(ctx, rows); err != nil {
			s.logger.ErrorContext(ctx, "leagues bootstrap upsert failed", "season", season, "error", err)
			continue
		}
		total += len(rows)
	}

	s.logger.InfoContext(ctx, "leagues bootstrap complete", "count", total)
	return total, nil
}

// BootstrapTeams refreshes the roster for every tracked (league, season)
// through the dependency resolver, so the bootstrap markers stay in sync.
func (s *BootstrapService) BootstrapTeams(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "BootstrapService.BootstrapTeams")
	defer span.End()

	done := 0
	for _, t := range tracked {
		if err := s.resolver.EnsureTeams(ctx, t.ID, t.Season, nil); err != nil {
			s.logger.ErrorContext(ctx, "team bootstrap failed",
				"league_id", t.ID, "season", t.Season, "error", err)
			if isFatal(err) {
				return done, err
			}
			continue
		}
		done++
	}

	s.logger.InfoContext(ctx, "team bootstrap complete", "leagues", done, "tracked", len(tracked))
	return done, nil
}
