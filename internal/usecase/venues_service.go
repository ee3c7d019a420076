package usecase

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/team"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

// VenueService fills in venues that exist only as FK stubs created during
// fixture ingestion. Each run enriches a bounded slice of the backlog, oldest
// stubs first.
type VenueService struct {
	fetcher Fetcher
	teams   team.Repository
	logger  *logging.Logger
}

func NewVenueService(fetcher Fetcher, teamRepo team.Repository, logger *logging.Logger) *VenueService {
	if logger == nil {
		logger = logging.Default()
	}
	return &VenueService{fetcher: fetcher, teams: teamRepo, logger: logger}
}

// EnrichStubs fetches full venue records for up to maxPerRun stub rows. A
// zero ceiling disables the job.
func (s *VenueService) EnrichStubs(ctx context.Context, maxPerRun int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "VenueService.EnrichStubs")
	defer span.End()

	if maxPerRun <= 0 {
		return 0, nil
	}

	ids, err := s.teams.StubVenueIDs(ctx, maxPerRun)
	if err != nil {
		return 0, crerr.Wrap(err, "list stub venues")
	}

	enriched := 0
	for _, id := range ids {
		resp, err := s.fetcher.Fetch(ctx, "/venues", map[string]string{"id": fmt.Sprint(id)})
		if err != nil {
			s.logger.ErrorContext(ctx, "venue enrichment fetch failed", "venue_id", id, "error", err)
			if isFatal(err) {
				return enriched, err
			}
			continue
		}

		venues, skipped := transform.Venues(resp.Envelope.Response)
		if skipped > 0 {
			s.logger.WarnContext(ctx, "venue items skipped", "venue_id", id, "skipped", skipped)
		}
		if len(venues) == 0 {
			continue
		}
		if err := s.teams.UpsertVenues(ctx, venues); err != nil {
			s.logger.ErrorContext(ctx, "venue enrichment write failed", "venue_id", id, "error", err)
			continue
		}
		enriched++
	}

	s.logger.InfoContext(ctx, "venue enrichment pass complete", "stubs", len(ids), "enriched", enriched)
	return enriched, nil
}
