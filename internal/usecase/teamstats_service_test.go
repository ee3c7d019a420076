package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/teamstats"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
)

type fakeTeamStatsRepo struct {
	mu       sync.Mutex
	upserted []teamstats.SeasonStats
}

func (r *fakeTeamStatsRepo) Upsert(_ context.Context, item teamstats.SeasonStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, item)
	return nil
}

func (r *fakeTeamStatsRepo) Count(context.Context, int64, int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.upserted), nil
}

func (r *fakeTeamStatsRepo) LastUpdate(context.Context, int64, int) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func seasonStatsItem(leagueID int64, season int, teamID int64) string {
	return fmt.Sprintf(`{
		"league": {"id": %d, "season": %d},
		"team": {"id": %d},
		"form": "WWDLW",
		"fixtures": {
			"played": {"total": 10},
			"wins": {"total": 6},
			"draws": {"total": 2},
			"loses": {"total": 2}
		}
	}`, leagueID, season, teamID)
}

func newTeamStatsFixture(t *testing.T, teamIDs []int64) (*TeamStatsService, *fakeTeamStatsRepo, *fakeProgressRepo, *stubFetcher) {
	t.Helper()

	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		item := seasonStatsItem(39, 2026, mustParseID(t, params["team"]))
		return envelopeResponse([]string{item}, 1, 1), nil
	}}
	statsRepo := &fakeTeamStatsRepo{}
	fixtureRepo := &fakeFixtureRepo{
		distinctTeamIDsFn: func(int64, int) ([]int64, error) { return teamIDs, nil },
	}
	progressRepo := newFakeProgressRepo()
	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026))

	service := NewTeamStatsService(fetcher, statsRepo, fixtureRepo, progressRepo,
		scope.NewResolver(scope.Policy{}, leagueRepo, nil), nil)
	return service, statsRepo, progressRepo, fetcher
}

func mustParseID(t *testing.T, raw string) int64 {
	t.Helper()
	var id int64
	_, err := fmt.Sscan(raw, &id)
	require.NoError(t, err)
	return id
}

func TestTeamStatsSyncHonoursRunCeiling(t *testing.T) {
	service, statsRepo, progressRepo, fetcher := newTeamStatsFixture(t, []int64{100, 101, 102})

	tracked := []league.Tracked{{ID: 39, Season: 2026}}
	done, err := service.Sync(context.Background(), tracked, 2, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, done)

	require.Len(t, statsRepo.upserted, 2)
	require.Len(t, fetcher.callsTo("/teams/statistics"), 2)

	// discovery seeded all three cursors, only two advanced
	advanced := 0
	for _, teamID := range []int64{100, 101, 102} {
		cursor, found, err := progressRepo.GetTeamStatsCursor(context.Background(), 39, 2026, teamID)
		require.NoError(t, err)
		require.True(t, found)
		if cursor.LastFetchedAt != nil {
			advanced++
		}
	}
	require.Equal(t, 2, advanced)
}

func TestTeamStatsSyncSkipsFreshCursors(t *testing.T) {
	service, statsRepo, _, fetcher := newTeamStatsFixture(t, []int64{100, 101})

	tracked := []league.Tracked{{ID: 39, Season: 2026}}
	done, err := service.Sync(context.Background(), tracked, 10, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, done)

	// an immediate second pass finds every cursor fresh
	done, err = service.Sync(context.Background(), tracked, 10, 24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, done)
	require.Len(t, statsRepo.upserted, 2)
	require.Len(t, fetcher.callsTo("/teams/statistics"), 2)
}

func TestTeamStatsSyncPromotesSeasonColumns(t *testing.T) {
	service, statsRepo, _, _ := newTeamStatsFixture(t, []int64{100})

	done, err := service.Sync(context.Background(), []league.Tracked{{ID: 39, Season: 2026}}, 10, time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, done)

	row := statsRepo.upserted[0]
	require.EqualValues(t, 39, row.LeagueID)
	require.Equal(t, 2026, row.Season)
	require.EqualValues(t, 100, row.TeamID)
	require.Equal(t, "WWDLW", row.Form)
	require.Equal(t, 10, row.Played)
	require.Equal(t, 6, row.Wins)
	require.NotEmpty(t, row.RawJSON)
}
