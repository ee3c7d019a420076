package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/standing"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/team"
)

// newObservedBucket returns a limiter that has seen the given daily
// remaining from upstream headers.
func newObservedBucket(t *testing.T, dailyRemaining int) *ratelimit.Bucket {
	t.Helper()
	bucket := ratelimit.NewBucket(ratelimit.Config{MaxTokens: 10, InitialTokens: 10})
	header := http.Header{}
	header.Set("x-ratelimit-requests-remaining", fmt.Sprint(dailyRemaining))
	bucket.UpdateFromHeaders(header)
	return bucket
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

type fetchCall struct {
	Endpoint string
	Params   map[string]string
}

// stubFetcher scripts upstream responses per call and records every request.
type stubFetcher struct {
	mu      sync.Mutex
	calls   []fetchCall
	handler func(endpoint string, params map[string]string) (*apifootball.Response, error)
}

func (f *stubFetcher) Fetch(_ context.Context, endpoint string, params map[string]string) (*apifootball.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{Endpoint: endpoint, Params: params})
	f.mu.Unlock()
	return f.handler(endpoint, params)
}

func (f *stubFetcher) callsTo(endpoint string) []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fetchCall
	for _, call := range f.calls {
		if call.Endpoint == endpoint {
			out = append(out, call)
		}
	}
	return out
}

func envelopeResponse(items []string, current, total int) *apifootball.Response {
	raw := make(apifootball.ResponseField, 0, len(items))
	for _, item := range items {
		raw = append(raw, apifootball.RawItem(item))
	}
	return &apifootball.Response{
		StatusCode: 200,
		Envelope: apifootball.Envelope{
			Results:  len(raw),
			Response: raw,
			Paging:   apifootball.Paging{Current: current, Total: total},
		},
	}
}

// fakeFixtureRepo implements fixture.Repository through optional function
// fields; unset methods return zero values.
type fakeFixtureRepo struct {
	mu       sync.Mutex
	upserted []fixture.Fixture
	details  []fixture.Details
	events   []fixture.Event
	players  []fixture.PlayerStat
	teamStat []fixture.TeamStat
	lineups  []fixture.Lineup

	listLiveStaleFn         func(olderThan time.Time, limit int) ([]fixture.Fixture, error)
	listScheduledOverdueFn  func(kickoffBefore time.Time, limit int) ([]fixture.Fixture, error)
	listNeedingVerifyFn     func(limit int) ([]fixture.Fixture, error)
	listAutoFinishFn        func(kickoffBefore, updatedBefore time.Time, limit int) ([]fixture.Fixture, error)
	listFinalSinceFn        func(since time.Time, limit int) ([]fixture.Fixture, error)
	listFinalBetweenFn      func(from, to time.Time, limit int) ([]fixture.Fixture, error)
	listKickoffBetweenFn    func(from, to time.Time, limit int) ([]fixture.Fixture, error)
	distinctTeamIDsFn       func(leagueID int64, season int) ([]int64, error)
	countByLeagueSeasonFn   func(leagueID int64, season int) (int, error)
	lastUpdateByLeagueSeaFn func(leagueID int64, season int) (time.Time, bool, error)
}

func (r *fakeFixtureRepo) Upsert(_ context.Context, items []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, items...)
	return nil
}

func (r *fakeFixtureRepo) UpsertDetails(_ context.Context, items []fixture.Details) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, items...)
	return nil
}

func (r *fakeFixtureRepo) UpsertWithDetails(ctx context.Context, fixtures []fixture.Fixture, details []fixture.Details) error {
	if err := r.Upsert(ctx, fixtures); err != nil {
		return err
	}
	return r.UpsertDetails(ctx, details)
}

func (r *fakeFixtureRepo) UpsertEvents(_ context.Context, items []fixture.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, items...)
	return nil
}

func (r *fakeFixtureRepo) UpsertPlayerStats(_ context.Context, items []fixture.PlayerStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players = append(r.players, items...)
	return nil
}

func (r *fakeFixtureRepo) UpsertTeamStats(_ context.Context, items []fixture.TeamStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teamStat = append(r.teamStat, items...)
	return nil
}

func (r *fakeFixtureRepo) UpsertLineups(_ context.Context, items []fixture.Lineup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineups = append(r.lineups, items...)
	return nil
}

func (r *fakeFixtureRepo) GetByID(context.Context, int64) (fixture.Fixture, bool, error) {
	return fixture.Fixture{}, false, nil
}

func (r *fakeFixtureRepo) ListByIDs(context.Context, []int64) ([]fixture.Fixture, error) {
	return nil, nil
}

func (r *fakeFixtureRepo) ListLiveStale(_ context.Context, olderThan time.Time, limit int) ([]fixture.Fixture, error) {
	if r.listLiveStaleFn == nil {
		return nil, nil
	}
	return r.listLiveStaleFn(olderThan, limit)
}

func (r *fakeFixtureRepo) ListScheduledOverdue(_ context.Context, kickoffBefore time.Time, limit int) ([]fixture.Fixture, error) {
	if r.listScheduledOverdueFn == nil {
		return nil, nil
	}
	return r.listScheduledOverdueFn(kickoffBefore, limit)
}

func (r *fakeFixtureRepo) ListNeedingVerification(_ context.Context, limit int) ([]fixture.Fixture, error) {
	if r.listNeedingVerifyFn == nil {
		return nil, nil
	}
	return r.listNeedingVerifyFn(limit)
}

func (r *fakeFixtureRepo) ListAutoFinishCandidates(_ context.Context, kickoffBefore, updatedBefore time.Time, limit int) ([]fixture.Fixture, error) {
	if r.listAutoFinishFn == nil {
		return nil, nil
	}
	return r.listAutoFinishFn(kickoffBefore, updatedBefore, limit)
}

func (r *fakeFixtureRepo) ListFinalSince(_ context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	if r.listFinalSinceFn == nil {
		return nil, nil
	}
	return r.listFinalSinceFn(since, limit)
}

func (r *fakeFixtureRepo) ListFinalBetween(_ context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	if r.listFinalBetweenFn == nil {
		return nil, nil
	}
	return r.listFinalBetweenFn(from, to, limit)
}

func (r *fakeFixtureRepo) ListKickoffBetween(_ context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	if r.listKickoffBetweenFn == nil {
		return nil, nil
	}
	return r.listKickoffBetweenFn(from, to, limit)
}

func (r *fakeFixtureRepo) DistinctTeamIDs(_ context.Context, leagueID int64, season int) ([]int64, error) {
	if r.distinctTeamIDsFn == nil {
		return nil, nil
	}
	return r.distinctTeamIDsFn(leagueID, season)
}

func (r *fakeFixtureRepo) CountByLeagueSeason(_ context.Context, leagueID int64, season int) (int, error) {
	if r.countByLeagueSeasonFn == nil {
		return 0, nil
	}
	return r.countByLeagueSeasonFn(leagueID, season)
}

func (r *fakeFixtureRepo) LastUpdateByLeagueSeason(_ context.Context, leagueID int64, season int) (time.Time, bool, error) {
	if r.lastUpdateByLeagueSeaFn == nil {
		return time.Time{}, false, nil
	}
	return r.lastUpdateByLeagueSeaFn(leagueID, season)
}

// fakeLeagueRepo serves leagues from a map.
type fakeLeagueRepo struct {
	mu      sync.Mutex
	byID    map[int64]league.League
	upserts int
}

func newFakeLeagueRepo(leagues ...league.League) *fakeLeagueRepo {
	byID := make(map[int64]league.League, len(leagues))
	for _, l := range leagues {
		byID[l.ID] = l
	}
	return &fakeLeagueRepo{byID: byID}
}

func (r *fakeLeagueRepo) Upsert(_ context.Context, items []league.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	for _, item := range items {
		r.byID[item.ID] = item
	}
	return nil
}

func (r *fakeLeagueRepo) GetByID(_ context.Context, id int64) (league.League, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	return l, ok, nil
}

func (r *fakeLeagueRepo) TypeByID(_ context.Context, id int64) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return "", false, nil
	}
	return l.Type, true, nil
}

// fakeTeamRepo treats every team in known as present.
type fakeTeamRepo struct {
	mu     sync.Mutex
	known  map[int64]struct{}
	venues []team.Venue
	teams  []team.Team
}

func newFakeTeamRepo(knownIDs ...int64) *fakeTeamRepo {
	known := make(map[int64]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}
	return &fakeTeamRepo{known: known}
}

func (r *fakeTeamRepo) UpsertTeams(_ context.Context, items []team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams = append(r.teams, items...)
	for _, item := range items {
		r.known[item.ID] = struct{}{}
	}
	return nil
}

func (r *fakeTeamRepo) UpsertVenues(_ context.Context, items []team.Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.venues = append(r.venues, items...)
	return nil
}

func (r *fakeTeamRepo) EnsureVenueStubs(context.Context, []int64) error { return nil }

func (r *fakeTeamRepo) ExistingTeamIDs(_ context.Context, ids []int64) (map[int64]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]struct{})
	for _, id := range ids {
		if _, ok := r.known[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) StubVenueIDs(context.Context, int) ([]int64, error) { return nil, nil }

func (r *fakeTeamRepo) CountTeams(context.Context, int64, int) (int, error) { return 0, nil }

// fakeProgressRepo keeps every cursor in memory.
type fakeProgressRepo struct {
	mu         sync.Mutex
	backfills  map[string]progress.Backfill
	bootstraps map[string]progress.TeamBootstrap
	cursors    map[string]progress.TeamStatsCursor
	roundRobin map[string]progress.RoundRobin
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{
		backfills:  map[string]progress.Backfill{},
		bootstraps: map[string]progress.TeamBootstrap{},
		cursors:    map[string]progress.TeamStatsCursor{},
		roundRobin: map[string]progress.RoundRobin{},
	}
}

func backfillKey(jobID string, leagueID int64, season int) string {
	return jobID + "|" + pairKey(leagueID, season)
}

func pairKey(leagueID int64, season int) string {
	return fmt.Sprintf("%d/%d", leagueID, season)
}

func cursorKey(leagueID int64, season int, teamID int64) string {
	return fmt.Sprintf("%d/%d/%d", leagueID, season, teamID)
}

func (r *fakeProgressRepo) GetBackfill(_ context.Context, jobID string, leagueID int64, season int) (progress.Backfill, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.backfills[backfillKey(jobID, leagueID, season)]
	return item, ok, nil
}

func (r *fakeProgressRepo) UpsertBackfill(_ context.Context, item progress.Backfill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backfills[backfillKey(item.JobID, item.LeagueID, item.Season)] = item
	return nil
}

func (r *fakeProgressRepo) GetTeamBootstrap(_ context.Context, leagueID int64, season int) (progress.TeamBootstrap, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.bootstraps[pairKey(leagueID, season)]
	return item, ok, nil
}

func (r *fakeProgressRepo) UpsertTeamBootstrap(_ context.Context, item progress.TeamBootstrap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bootstraps[pairKey(item.LeagueID, item.Season)] = item
	return nil
}

func (r *fakeProgressRepo) GetTeamStatsCursor(_ context.Context, leagueID int64, season int, teamID int64) (progress.TeamStatsCursor, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.cursors[cursorKey(leagueID, season, teamID)]
	return item, ok, nil
}

func (r *fakeProgressRepo) UpsertTeamStatsCursor(_ context.Context, item progress.TeamStatsCursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursors[cursorKey(item.LeagueID, item.Season, item.TeamID)] = item
	return nil
}

func (r *fakeProgressRepo) SeedTeamStatsCursors(_ context.Context, leagueID int64, season int, teamIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, teamID := range teamIDs {
		key := cursorKey(leagueID, season, teamID)
		if _, ok := r.cursors[key]; ok {
			continue
		}
		r.cursors[key] = progress.TeamStatsCursor{LeagueID: leagueID, Season: season, TeamID: teamID}
	}
	return nil
}

func (r *fakeProgressRepo) OldestTeamStatsCursors(_ context.Context, leagueID int64, season int, limit int) ([]progress.TeamStatsCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []progress.TeamStatsCursor
	for _, cursor := range r.cursors {
		if cursor.LeagueID == leagueID && cursor.Season == season {
			out = append(out, cursor)
		}
	}
	// stalest first, never-fetched before everything
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastFetchedAt, out[j].LastFetchedAt
		switch {
		case a == nil && b == nil:
			return out[i].TeamID < out[j].TeamID
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return out[i].TeamID < out[j].TeamID
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeProgressRepo) GetRoundRobin(_ context.Context, jobID string) (progress.RoundRobin, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.roundRobin[jobID]
	return item, ok, nil
}

func (r *fakeProgressRepo) UpsertRoundRobin(_ context.Context, item progress.RoundRobin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roundRobin[item.JobID] = item
	return nil
}

// fakeStandingRepo records Replace calls.
type fakeStandingRepo struct {
	mu       sync.Mutex
	replaced map[string][]standing.Row
}

func newFakeStandingRepo() *fakeStandingRepo {
	return &fakeStandingRepo{replaced: map[string][]standing.Row{}}
}

func (r *fakeStandingRepo) Replace(_ context.Context, leagueID int64, season int, rows []standing.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced[pairKey(leagueID, season)] = rows
	return nil
}

func (r *fakeStandingRepo) Count(_ context.Context, leagueID int64, season int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replaced[pairKey(leagueID, season)]), nil
}

func (r *fakeStandingRepo) LastUpdate(context.Context, int64, int) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
