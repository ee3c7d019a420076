package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
	"github.com/blkn1/API-Football-Collector-sub000/internal/transform"
)

const (
	// batchIDLimit is the upstream maximum for the ids= multi-fixture form.
	batchIDLimit = 20

	autoFinishedStatusLong = "Auto-finished"
)

// MaintenanceService is the watchdog over fixture lifecycle drift: rows stuck
// live after the feed moved on, rows stuck scheduled past kickoff, and
// abandoned live rows that must be force-finished locally.
type MaintenanceService struct {
	fetcher  Fetcher
	fixtures fixture.Repository
	bucket   *ratelimit.Bucket
	logger   *logging.Logger
}

func NewMaintenanceService(fetcher Fetcher, fixtureRepo fixture.Repository, bucket *ratelimit.Bucket, logger *logging.Logger) *MaintenanceService {
	if logger == nil {
		logger = logging.Default()
	}
	return &MaintenanceService{fetcher: fetcher, fixtures: fixtureRepo, bucket: bucket, logger: logger}
}

// RefreshStaleLive refetches fixtures still marked live whose last update is
// older than the threshold. The live loop should have moved them; this is the
// safety net when it was down.
func (m *MaintenanceService) RefreshStaleLive(ctx context.Context, staleAfter time.Duration, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "MaintenanceService.RefreshStaleLive")
	defer span.End()

	stale, err := m.fixtures.ListLiveStale(ctx, time.Now().UTC().Add(-staleAfter), limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list stale live fixtures")
	}
	return m.refetchByIDs(ctx, fixtureIDs(stale))
}

// FinalizeStaleScheduled refetches fixtures still scheduled though kickoff
// passed more than the lag ago: postponed, cancelled, or simply missed.
func (m *MaintenanceService) FinalizeStaleScheduled(ctx context.Context, kickoffLag time.Duration, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "MaintenanceService.FinalizeStaleScheduled")
	defer span.End()

	overdue, err := m.fixtures.ListScheduledOverdue(ctx, time.Now().UTC().Add(-kickoffLag), limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list overdue scheduled fixtures")
	}
	return m.refetchByIDs(ctx, fixtureIDs(overdue))
}

// refetchByIDs pulls current state for the given fixtures in batches of at
// most twenty ids per call and upserts whatever comes back.
func (m *MaintenanceService) refetchByIDs(ctx context.Context, ids []int64) (int, error) {
	written := 0
	for start := 0; start < len(ids); start += batchIDLimit {
		end := start + batchIDLimit
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		resp, err := m.fetcher.Fetch(ctx, "/fixtures", map[string]string{"ids": joinIDs(batch)})
		if err != nil {
			m.logger.ErrorContext(ctx, "batch fixture refetch failed", "ids", len(batch), "error", err)
			if isFatal(err) {
				return written, err
			}
			continue
		}

		rows := transform.Fixtures(resp.Envelope.Response)
		if rows.Skipped > 0 {
			m.logger.WarnContext(ctx, "refetched fixture items skipped", "skipped", rows.Skipped)
		}
		if err := m.fixtures.UpsertWithDetails(ctx, rows.Fixtures, rows.Details); err != nil {
			m.logger.ErrorContext(ctx, "refetched fixture write failed", "error", err)
			continue
		}
		written += len(rows.Fixtures)
	}
	return written, nil
}

// AutoFinish force-finishes live fixtures abandoned by the feed without
// spending any API calls. Both clocks must agree: kickoff at least
// kickoffThreshold ago and no update for at least safetyLag, so a fixture the
// live loop is still touching is never closed under it.
func (m *MaintenanceService) AutoFinish(ctx context.Context, kickoffThreshold, safetyLag time.Duration, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "MaintenanceService.AutoFinish")
	defer span.End()

	now := time.Now().UTC()
	candidates, err := m.fixtures.ListAutoFinishCandidates(ctx,
		now.Add(-kickoffThreshold), now.Add(-safetyLag), limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list auto finish candidates")
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	finished := make([]fixture.Fixture, 0, len(candidates))
	for _, f := range candidates {
		m.logger.WarnContext(ctx, "force-finishing abandoned live fixture",
			"fixture_id", f.ID, "status", f.StatusShort, "kickoff_at", f.KickoffAt, "last_update", f.UpdatedAt)
		finished = append(finished, forceFinish(f))
	}
	if err := m.fixtures.Upsert(ctx, finished); err != nil {
		return 0, crerr.Wrap(err, "write force-finished fixtures")
	}
	return len(finished), nil
}

// forceFinish closes one fixture locally: FT at ninety minutes, the last seen
// goals promoted to fulltime, and the verification flag raised so a later
// refetch can reconcile the real score.
func forceFinish(f fixture.Fixture) fixture.Fixture {
	elapsed := 90
	f.StatusShort = "FT"
	f.StatusLong = autoFinishedStatusLong
	f.Elapsed = &elapsed
	f.ScoreJSON = synthesizeScore(f)
	f.NeedsScoreVerification = true
	return f
}

// synthesizeScore keeps whatever score block exists and overwrites fulltime
// with the last observed goals. A missing block is built from scratch.
func synthesizeScore(f fixture.Fixture) string {
	score := map[string]any{
		"halftime":  map[string]any{"home": nil, "away": nil},
		"fulltime":  map[string]any{"home": nil, "away": nil},
		"extratime": map[string]any{"home": nil, "away": nil},
		"penalty":   map[string]any{"home": nil, "away": nil},
	}
	if f.ScoreJSON != "" {
		var existing map[string]any
		if err := sonic.UnmarshalString(f.ScoreJSON, &existing); err == nil {
			for key, value := range existing {
				score[key] = value
			}
		}
	}
	score["fulltime"] = map[string]any{
		"home": optIntAny(f.GoalsHome),
		"away": optIntAny(f.GoalsAway),
	}
	encoded, err := sonic.Marshal(score)
	if err != nil {
		return f.ScoreJSON
	}
	return string(encoded)
}

// VerifyAutoFinished refetches force-finished fixtures to reconcile their
// scores. It only runs while the observed daily quota stays above the floor;
// score verification is the first job to yield when the day runs tight.
func (m *MaintenanceService) VerifyAutoFinished(ctx context.Context, minDailyRemaining, limit int) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "MaintenanceService.VerifyAutoFinished")
	defer span.End()

	if m.bucket != nil && minDailyRemaining > 0 {
		snapshot := m.bucket.Snapshot()
		if snapshot.HasDaily && snapshot.DailyRemaining < minDailyRemaining {
			m.logger.InfoContext(ctx, "score verification deferred, daily quota low",
				"remaining", snapshot.DailyRemaining, "floor", minDailyRemaining)
			return 0, nil
		}
	}

	pending, err := m.fixtures.ListNeedingVerification(ctx, limit)
	if err != nil {
		return 0, crerr.Wrap(err, "list fixtures needing verification")
	}
	// the refetched row arrives with the flag down, so a successful upsert
	// clears it
	return m.refetchByIDs(ctx, fixtureIDs(pending))
}

func fixtureIDs(items []fixture.Fixture) []int64 {
	out := make([]int64, 0, len(items))
	for _, f := range items {
		out = append(out, f.ID)
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, "-")
}

func optIntAny(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
