package usecase

import (
	"context"
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/rawdata"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

const (
	dateLayout = "2006-01-02"

	// detailBackfillWindow bounds the sweep that fills in detail tables for
	// already-finished matches.
	detailBackfillWindow = 90 * 24 * time.Hour

	// recentFinalizeWindow covers matches that finished since the last daily
	// run.
	recentFinalizeWindow = 24 * time.Hour
)

// FixtureSyncResult summarizes one fixtures run.
type FixtureSyncResult struct {
	Pages    int
	Unique   int
	Written  int
	Skipped  int
	Failures int
}

// FixtureService ingests fixture rows and their per-fixture detail tables:
// events, player statistics, team statistics, and lineups.
type FixtureService struct {
	fetcher  Fetcher
	fixtures fixture.Repository
	raw      rawdata.Repository
	resolver *DependencyResolver
	logger   *logging.Logger
}

func NewFixtureService(fetcher Fetcher, fixtureRepo fixture.Repository, rawRepo rawdata.Repository, resolver *DependencyResolver, logger *logging.Logger) *FixtureService {
	if logger == nil {
		logger = logging.Default()
	}
	return &FixtureService{
		fetcher:  fetcher,
		fixtures: fixtureRepo,
		raw:      rawRepo,
		resolver: resolver,
		logger:   logger,
	}
}

// SyncDaily fetches the day's fixtures per tracked (league, season). One
// failing pair never aborts the others.
func (s *FixtureService) SyncDaily(ctx context.Context, tracked []league.Tracked, date time.Time) (FixtureSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "FixtureService.SyncDaily")
	defer span.End()

	var result FixtureSyncResult
	day := date.UTC().Format(dateLayout)

	for _, t := range tracked {
		resp, err := s.fetcher.Fetch(ctx, "/fixtures", map[string]string{
			"league": fmt.Sprint(t.ID),
			"season": fmt.Sprint(t.Season),
			"date":   day,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "daily fixtures fetch failed",
				"league_id", t.ID, "season", t.Season, "date", day, "error", err)
			if isFatal(err) {
				return result, err
			}
			result.Failures++
			continue
		}
		result.Pages++

		rows := transform.Fixtures(resp.Envelope.Response)
		result.Skipped += rows.Skipped
		written, err := s.writeGroups(ctx, rows, &result)
		if err != nil {
			return result, err
		}
		result.Written += written
	}

	s.logger.InfoContext(ctx, "daily fixtures sync complete",
		"date", day, "written", result.Written, "skipped", result.Skipped, "failures", result.Failures)
	return result, nil
}

// SyncByDate fetches every fixture of the calendar day in one paged global
// call. Fixture ids repeating across pages count once; the later page wins.
func (s *FixtureService) SyncByDate(ctx context.Context, date time.Time) (FixtureSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "FixtureService.SyncByDate")
	defer span.End()

	var result FixtureSyncResult
	day := date.UTC().Format(dateLayout)

	merged := transform.FixtureRows{}
	index := make(map[int64]int)
	detailIndex := make(map[int64]int)
	seenVenues := make(map[int64]struct{})

	page := 1
	for {
		params := map[string]string{"date": day, "timezone": "UTC"}
		if page > 1 {
			params["page"] = fmt.Sprint(page)
		}
		resp, err := s.fetcher.Fetch(ctx, "/fixtures", params)
		if err != nil {
			s.logger.ErrorContext(ctx, "by-date fixtures fetch failed", "date", day, "page", page, "error", err)
			return result, err
		}
		result.Pages++

		rows := transform.Fixtures(resp.Envelope.Response)
		result.Skipped += rows.Skipped
		mergeFixtureRows(&merged, rows, index, detailIndex, seenVenues)

		total := resp.Envelope.Paging.Total
		if len(resp.Envelope.Response) == 0 || total <= page {
			break
		}
		page++
	}

	result.Unique = len(merged.Fixtures)
	written, err := s.writeGroups(ctx, merged, &result)
	if err != nil {
		return result, err
	}
	result.Written = written

	s.logger.InfoContext(ctx, "by-date fixtures sync complete",
		"date", day, "pages", result.Pages, "unique", result.Unique, "written", result.Written)
	return result, nil
}

// mergeFixtureRows folds one page into the accumulated set, deduplicating
// fixtures and venues by id. A repeat of an id replaces the earlier row.
func mergeFixtureRows(dst *transform.FixtureRows, page transform.FixtureRows, index, detailIndex map[int64]int, seenVenues map[int64]struct{}) {
	for _, f := range page.Fixtures {
		if pos, ok := index[f.ID]; ok {
			dst.Fixtures[pos] = f
			continue
		}
		index[f.ID] = len(dst.Fixtures)
		dst.Fixtures = append(dst.Fixtures, f)
	}
	for _, d := range page.Details {
		if pos, ok := detailIndex[d.FixtureID]; ok {
			dst.Details[pos] = d
			continue
		}
		detailIndex[d.FixtureID] = len(dst.Details)
		dst.Details = append(dst.Details, d)
	}
	for _, v := range page.Venues {
		if _, ok := seenVenues[v.ID]; ok {
			continue
		}
		seenVenues[v.ID] = struct{}{}
		dst.Venues = append(dst.Venues, v)
	}
}

// writeGroups buckets the rows by (league, season), resolves dependencies once
// per bucket, and writes each bucket atomically. A bucket whose dependencies
// cannot be ensured is skipped, not fatal.
func (s *FixtureService) writeGroups(ctx context.Context, rows transform.FixtureRows, result *FixtureSyncResult) (int, error) {
	written := 0
	groups := transform.GroupFixtures(rows)
	venuesByGroup := groupVenues(rows)

	for key, group := range groups {
		group.Venues = venuesByGroup[key]
		if err := s.resolver.EnsureForFixtures(ctx, key, group); err != nil {
			s.logger.ErrorContext(ctx, "dependency resolution failed, batch skipped",
				"league_id", key.LeagueID, "season", key.Season, "fixtures", len(group.Fixtures), "error", err)
			if isFatal(err) {
				return written, err
			}
			result.Failures++
			continue
		}
		if err := s.fixtures.UpsertWithDetails(ctx, group.Fixtures, group.Details); err != nil {
			s.logger.ErrorContext(ctx, "fixture batch write failed",
				"league_id", key.LeagueID, "season", key.Season, "error", err)
			result.Failures++
			continue
		}
		written += len(group.Fixtures)
	}
	return written, nil
}

// groupVenues assigns each referenced venue to the groups whose fixtures
// mention it.
func groupVenues(rows transform.FixtureRows) map[transform.LeagueSeason][]transform.VenueRef {
	refs := make(map[int64]transform.VenueRef, len(rows.Venues))
	for _, v := range rows.Venues {
		refs[v.ID] = v
	}

	out := make(map[transform.LeagueSeason][]transform.VenueRef)
	seen := make(map[transform.LeagueSeason]map[int64]struct{})
	for _, f := range rows.Fixtures {
		if f.VenueID == nil {
			continue
		}
		ref, ok := refs[*f.VenueID]
		if !ok {
			continue
		}
		key := transform.LeagueSeason{LeagueID: f.LeagueID, Season: f.Season}
		if seen[key] == nil {
			seen[key] = make(map[int64]struct{})
		}
		if _, dup := seen[key][ref.ID]; dup {
			continue
		}
		seen[key][ref.ID] = struct{}{}
		out[key] = append(out[key], ref)
	}
	return out
}

// CaptureDetails fetches the four per-fixture detail endpoints for each id
// and writes the parsed tables. Each fixture is independent.
func (s *FixtureService) CaptureDetails(ctx context.Context, fixtureIDs []int64) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "FixtureService.CaptureDetails")
	defer span.End()

	done := 0
	for _, id := range fixtureIDs {
		if err := s.captureOne(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "fixture detail capture failed", "fixture_id", id, "error", err)
			if isFatal(err) {
				return done, err
			}
			continue
		}
		done++
	}
	return done, nil
}

func (s *FixtureService) captureOne(ctx context.Context, fixtureID int64) error {
	params := map[string]string{"fixture": fmt.Sprint(fixtureID)}

	events, err := s.fetchSection(ctx, "/fixtures/events", params)
	if err != nil {
		return err
	}
	rows, skipped := transform.Events(fixtureID, events)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "event items skipped", "fixture_id", fixtureID, "skipped", skipped)
	}
	if err := s.fixtures.UpsertEvents(ctx, rows); err != nil {
		return crerr.Wrap(err, "upsert events")
	}

	stats, err := s.fetchSection(ctx, "/fixtures/statistics", params)
	if err != nil {
		return err
	}
	teamRows, skipped := transform.TeamStats(fixtureID, stats)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "statistics items skipped", "fixture_id", fixtureID, "skipped", skipped)
	}
	if err := s.fixtures.UpsertTeamStats(ctx, teamRows); err != nil {
		return crerr.Wrap(err, "upsert team statistics")
	}

	lineups, err := s.fetchSection(ctx, "/fixtures/lineups", params)
	if err != nil {
		return err
	}
	lineupRows, skipped := transform.Lineups(fixtureID, lineups)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "lineup items skipped", "fixture_id", fixtureID, "skipped", skipped)
	}
	if err := s.fixtures.UpsertLineups(ctx, lineupRows); err != nil {
		return crerr.Wrap(err, "upsert lineups")
	}

	players, err := s.fetchSection(ctx, "/fixtures/players", params)
	if err != nil {
		return err
	}
	playerRows, skipped := transform.PlayerStats(fixtureID, players)
	if skipped > 0 {
		s.logger.WarnContext(ctx, "player items skipped", "fixture_id", fixtureID, "skipped", skipped)
	}
	if err := s.fixtures.UpsertPlayerStats(ctx, playerRows); err != nil {
		return crerr.Wrap(err, "upsert player statistics")
	}
	return nil
}

func (s *FixtureService) fetchSection(ctx context.Context, endpoint string, params map[string]string) ([]apifootball.RawItem, error) {
	resp, err := s.fetcher.Fetch(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	return resp.Envelope.Response, nil
}

// BackfillDetails sweeps finished matches of the past 90 days that never had
// a /fixtures/players call archived and captures their detail tables. The
// players call is the completion marker because it is the last of the four.
func (s *FixtureService) BackfillDetails(ctx context.Context, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "FixtureService.BackfillDetails")
	defer span.End()

	now := time.Now().UTC()
	fixtures, err := s.fixtures.ListFinalBetween(ctx, now.Add(-detailBackfillWindow), now, limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list finished fixtures")
	}
	if len(fixtures) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(fixtures))
	for _, f := range fixtures {
		ids = append(ids, f.ID)
	}
	covered, err := s.raw.FixtureIDsWithCall(ctx, "/fixtures/players", ids)
	if err != nil {
		return 0, crerr.Wrap(err, "check archived detail calls")
	}

	pending := ids[:0]
	for _, id := range ids {
		if _, ok := covered[id]; !ok {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		s.logger.InfoContext(ctx, "detail backfill up to date", "candidates", len(ids))
		return 0, nil
	}

	done, err := s.CaptureDetails(ctx, pending)
	s.logger.InfoContext(ctx, "detail backfill pass complete",
		"candidates", len(ids), "pending", len(pending), "captured", done)
	return done, err
}

// FinalizeRecent captures detail tables for matches finished in the last 24
// hours, regardless of earlier captures, so in-progress snapshots settle on
// the final numbers.
func (s *FixtureService) FinalizeRecent(ctx context.Context, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "FixtureService.FinalizeRecent")
	defer span.End()

	fixtures, err := s.fixtures.ListFinalSince(ctx, time.Now().UTC().Add(-recentFinalizeWindow), limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list recently finished fixtures")
	}

	ids := make([]int64, 0, len(fixtures))
	for _, f := range fixtures {
		ids = append(ids, f.ID)
	}
	return s.CaptureDetails(ctx, ids)
}

// CaptureKickoffLineups fetches lineups for fixtures currently inside the
// announcement window: from two hours before kickoff to one hour after.
func (s *FixtureService) CaptureKickoffLineups(ctx context.Context, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "FixtureService.CaptureKickoffLineups")
	defer span.End()

	now := time.Now().UTC()
	fixtures, err := s.fixtures.ListKickoffBetween(ctx, now.Add(-time.Hour), now.Add(2*time.Hour), limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list fixtures near kickoff")
	}

	done := 0
	for _, f := range fixtures {
		items, err := s.fetchSection(ctx, "/fixtures/lineups", map[string]string{"fixture": fmt.Sprint(f.ID)})
		if err != nil {
			s.logger.ErrorContext(ctx, "lineup capture failed", "fixture_id", f.ID, "error", err)
			if isFatal(err) {
				return done, err
			}
			continue
		}
		rows, skipped := transform.Lineups(f.ID, items)
		if skipped > 0 {
			s.logger.WarnContext(ctx, "lineup items skipped", "fixture_id", f.ID, "skipped", skipped)
		}
		if len(rows) == 0 {
			// not announced yet, the next tick retries
			continue
		}
		if err := s.fixtures.UpsertLineups(ctx, rows); err != nil {
			s.logger.ErrorContext(ctx, "lineup write failed", "fixture_id", f.ID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}
