package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/delta"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

const (
	// minLiveInterval is the hard floor between live polls regardless of
	// configuration.
	minLiveInterval = 15 * time.Second

	// maxLiveBackoff caps the rate-limit backoff doubling.
	maxLiveBackoff = 60 * time.Second
)

// LiveService polls /fixtures?live=all and writes only fixtures whose
// compared state moved since the previous tick. One global call covers every
// competition; the tracked filter is applied locally.
type LiveService struct {
	fetcher  Fetcher
	fixtures fixture.Repository
	resolver *DependencyResolver
	detector *delta.Detector
	logger   *logging.Logger

	interval time.Duration
	tracked  map[transform.LeagueSeason]struct{}
}

func NewLiveService(fetcher Fetcher, fixtureRepo fixture.Repository, resolver *DependencyResolver, detector *delta.Detector, tracked []league.Tracked, interval time.Duration, logger *logging.Logger) *LiveService {
	if logger == nil {
		logger = logging.Default()
	}
	if interval < minLiveInterval {
		interval = minLiveInterval
	}

	trackedSet := make(map[transform.LeagueSeason]struct{}, len(tracked))
	for _, t := range tracked {
		trackedSet[transform.LeagueSeason{LeagueID: t.ID, Season: t.Season}] = struct{}{}
	}

	return &LiveService{
		fetcher:  fetcher,
		fixtures: fixtureRepo,
		resolver: resolver,
		detector: detector,
		logger:   logger,
		interval: interval,
		tracked:  trackedSet,
	}
}

// Run polls until the context ends or the emergency stop trips. A 429 doubles
// the wait up to the cap; any other error keeps the normal cadence.
func (s *LiveService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "live loop started",
		"interval", s.interval.String(), "tracked_pairs", len(s.tracked))

	wait := s.interval
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "live loop stopped", "reason", ctx.Err())
			return nil
		case <-timer.C:
		}

		_, err := s.Tick(ctx)
		switch {
		case err == nil:
			wait = s.interval
		case crerr.Is(err, ratelimit.ErrEmergencyStop):
			s.logger.ErrorContext(ctx, "live loop halting on emergency stop", "error", err)
			return err
		case crerr.Is(err, apifootball.ErrRateLimited):
			wait *= 2
			if wait > maxLiveBackoff {
				wait = maxLiveBackoff
			}
			s.logger.WarnContext(ctx, "live tick rate limited, backing off", "wait", wait.String())
		case ctx.Err() != nil:
			return nil
		default:
			// transport and server errors keep the normal cadence; the next
			// tick retries
			wait = s.interval
			s.logger.ErrorContext(ctx, "live tick failed", "error", err)
		}

		timer.Reset(wait)
	}
}

// Tick performs one poll: fetch, filter, diff, write, cache. Returns how many
// fixtures actually changed.
func (s *LiveService) Tick(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "LiveService.Tick")
	defer span.End()

	resp, err := s.fetcher.Fetch(ctx, "/fixtures", map[string]string{"live": "all"})
	if err != nil {
		return 0, err
	}

	rows := transform.Fixtures(resp.Envelope.Response)
	if rows.Skipped > 0 {
		s.logger.WarnContext(ctx, "live fixture items skipped", "skipped", rows.Skipped)
	}

	filtered, outOfScope := s.filterTracked(rows)
	if outOfScope > 0 {
		s.logger.DebugContext(ctx, "live fixtures outside tracked set ignored",
			"ignored", outOfScope, "kept", len(filtered.Fixtures))
	}

	changedRows, finished := s.detectChanges(ctx, filtered)
	if len(changedRows.Fixtures) == 0 {
		s.clearFinished(ctx, finished)
		// the unchanged tick still reports how many snapshots it compared
		s.logger.InfoContext(ctx, "live tick complete",
			"fetched", len(filtered.Fixtures), "changed", 0)
		return 0, nil
	}

	written := 0
	for key, group := range transform.GroupFixtures(changedRows) {
		group.Venues = groupVenues(changedRows)[key]
		if err := s.resolver.EnsureForFixtures(ctx, key, group); err != nil {
			s.logger.ErrorContext(ctx, "live dependency resolution failed, group skipped",
				"league_id", key.LeagueID, "season", key.Season, "error", err)
			if isFatal(err) {
				return written, err
			}
			continue
		}
		if err := s.fixtures.UpsertWithDetails(ctx, group.Fixtures, group.Details); err != nil {
			s.logger.ErrorContext(ctx, "live group write failed",
				"league_id", key.LeagueID, "season", key.Season, "error", err)
			continue
		}
		// cache reflects only states that reached the database
		for _, f := range group.Fixtures {
			s.detector.UpdateCache(ctx, f.ID, liveState(f))
		}
		written += len(group.Fixtures)
	}

	s.clearFinished(ctx, finished)
	s.logger.InfoContext(ctx, "live tick complete",
		"fetched", len(filtered.Fixtures), "changed", written)
	return written, nil
}

// filterTracked drops fixtures outside the tracked set. An empty set tracks
// everything.
func (s *LiveService) filterTracked(rows transform.FixtureRows) (transform.FixtureRows, int) {
	if len(s.tracked) == 0 {
		return rows, 0
	}

	var kept transform.FixtureRows
	keptIDs := make(map[int64]struct{})
	dropped := 0
	for _, f := range rows.Fixtures {
		key := transform.LeagueSeason{LeagueID: f.LeagueID, Season: f.Season}
		if _, ok := s.tracked[key]; !ok {
			dropped++
			continue
		}
		kept.Fixtures = append(kept.Fixtures, f)
		keptIDs[f.ID] = struct{}{}
	}
	for _, d := range rows.Details {
		if _, ok := keptIDs[d.FixtureID]; ok {
			kept.Details = append(kept.Details, d)
		}
	}
	kept.Venues = rows.Venues
	kept.Skipped = rows.Skipped
	return kept, dropped
}

// detectChanges partitions fixtures into changed rows worth writing and
// finished ids whose cache entries should be dropped.
func (s *LiveService) detectChanges(ctx context.Context, rows transform.FixtureRows) (transform.FixtureRows, []int64) {
	var changed transform.FixtureRows
	changedIDs := make(map[int64]struct{})
	var finished []int64

	for _, f := range rows.Fixtures {
		if f.IsFinal() {
			finished = append(finished, f.ID)
		}
		if !s.detector.HasChanged(ctx, f.ID, liveState(f)) {
			continue
		}
		changed.Fixtures = append(changed.Fixtures, f)
		changedIDs[f.ID] = struct{}{}
	}
	for _, d := range rows.Details {
		if _, ok := changedIDs[d.FixtureID]; ok {
			changed.Details = append(changed.Details, d)
		}
	}
	changed.Venues = rows.Venues
	return changed, finished
}

func (s *LiveService) clearFinished(ctx context.Context, ids []int64) {
	for _, id := range ids {
		s.detector.ClearCache(ctx, id)
	}
}

func liveState(f fixture.Fixture) delta.State {
	return delta.State{
		Status:    f.StatusShort,
		GoalsHome: f.GoalsHome,
		GoalsAway: f.GoalsAway,
		Elapsed:   f.Elapsed,
	}
}
