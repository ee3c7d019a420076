package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
)

func standingsItem(leagueID int64, season int, teamIDs ...int64) string {
	rows := ""
	for i, teamID := range teamIDs {
		if i > 0 {
			rows += ","
		}
		rows += fmt.Sprintf(`{
			"rank": %d,
			"team": {"id": %d, "name": "Team %d"},
			"points": %d,
			"goalsDiff": 0,
			"group": "Group A",
			"form": "WWDLW",
			"status": "same",
			"description": "",
			"all": {"played": 10, "win": 5, "draw": 3, "lose": 2, "goals": {"for": 15, "against": 10}},
			"update": "2026-08-22T00:00:00+00:00"
		}`, i+1, teamID, teamID, 30-i)
	}
	return fmt.Sprintf(`{"league": {"id": %d, "season": %d, "standings": [[%s]]}}`, leagueID, season, rows)
}

func newStandingsFixture(t *testing.T, teamIDs ...int64) (*stubFetcher, *fakeStandingRepo, *StandingsService, *fakeProgressRepo) {
	t.Helper()

	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		require.Equal(t, "/standings", endpoint)
		return envelopeResponse([]string{standingsItem(39, 2026, teamIDs...)}, 1, 1), nil
	}}

	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026))
	teamRepo := newFakeTeamRepo(teamIDs...)
	progressRepo := newFakeProgressRepo()
	completedBootstrap(progressRepo, 39, 2026)

	resolver := NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, nil)
	scopeResolver := scope.NewResolver(scope.Policy{}, leagueRepo, nil)
	standingRepo := newFakeStandingRepo()
	service := NewStandingsService(fetcher, standingRepo, resolver, scopeResolver, progressRepo, nil)
	return fetcher, standingRepo, service, progressRepo
}

func TestRefreshDailyReplacesTableWholesale(t *testing.T) {
	_, standingRepo, service, _ := newStandingsFixture(t, 100, 101)

	tracked := []league.Tracked{{ID: 39, Season: 2026}}
	done, err := service.RefreshDaily(context.Background(), tracked, 5)
	require.NoError(t, err)
	require.Equal(t, 1, done)

	rows := standingRepo.replaced[pairKey(39, 2026)]
	require.Len(t, rows, 2)
	require.EqualValues(t, 100, rows[0].TeamID)
	require.Equal(t, 1, rows[0].Rank)
	require.Equal(t, "Group A", rows[0].GroupName)

	// a later run with fewer rows leaves exactly that many: replacement, not
	// accumulation
	fetcher2, standingRepo2, service2, _ := newStandingsFixture(t, 100)
	_ = fetcher2
	done, err = service2.RefreshDaily(context.Background(), tracked, 5)
	require.NoError(t, err)
	require.Equal(t, 1, done)
	require.Len(t, standingRepo2.replaced[pairKey(39, 2026)], 1)
}

func TestRefreshDailyAdvancesAndWrapsCursor(t *testing.T) {
	calls := map[string]int{}
	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		calls[params["league"]]++
		leagueID := int64(39)
		if params["league"] == "140" {
			leagueID = 140
		}
		return envelopeResponse([]string{standingsItem(leagueID, 2026, 100)}, 1, 1), nil
	}}

	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026), trackedLeague(140, 2026))
	teamRepo := newFakeTeamRepo(100)
	progressRepo := newFakeProgressRepo()
	completedBootstrap(progressRepo, 39, 2026)
	completedBootstrap(progressRepo, 140, 2026)

	resolver := NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, nil)
	scopeResolver := scope.NewResolver(scope.Policy{}, leagueRepo, nil)
	service := NewStandingsService(fetcher, newFakeStandingRepo(), resolver, scopeResolver, progressRepo, nil)

	tracked := []league.Tracked{{ID: 39, Season: 2026}, {ID: 140, Season: 2026}}

	// one pair per run: first run hits 39, second hits 140 and wraps
	_, err := service.RefreshDaily(context.Background(), tracked, 1)
	require.NoError(t, err)
	cursor, found, err := progressRepo.GetRoundRobin(context.Background(), standingsRoundRobinJob)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, cursor.Position)
	require.Equal(t, 0, cursor.Lap)

	_, err = service.RefreshDaily(context.Background(), tracked, 1)
	require.NoError(t, err)
	cursor, _, err = progressRepo.GetRoundRobin(context.Background(), standingsRoundRobinJob)
	require.NoError(t, err)
	require.Equal(t, 0, cursor.Position)
	require.Equal(t, 1, cursor.Lap)

	require.Equal(t, 1, calls["39"])
	require.Equal(t, 1, calls["140"])
}

func TestRefreshPairRefusesUnknownTeams(t *testing.T) {
	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		switch endpoint {
		case "/standings":
			return envelopeResponse([]string{standingsItem(39, 2026, 999)}, 1, 1), nil
		case "/teams":
			// refresh cannot produce the referenced team either
			return envelopeResponse(nil, 1, 1), nil
		default:
			return envelopeResponse(nil, 1, 1), nil
		}
	}}

	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026))
	teamRepo := newFakeTeamRepo()
	progressRepo := newFakeProgressRepo()
	completedBootstrap(progressRepo, 39, 2026)

	resolver := NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, nil)
	scopeResolver := scope.NewResolver(scope.Policy{}, leagueRepo, nil)
	standingRepo := newFakeStandingRepo()
	service := NewStandingsService(fetcher, standingRepo, resolver, scopeResolver, progressRepo, nil)

	done, err := service.RefreshDaily(context.Background(),
		[]league.Tracked{{ID: 39, Season: 2026}}, 1)
	require.NoError(t, err)
	require.Equal(t, 0, done)
	require.Empty(t, standingRepo.replaced)
}

func TestRefreshDailyHonoursCupDenylist(t *testing.T) {
	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		t.Fatalf("unexpected upstream call to %s", endpoint)
		return nil, nil
	}}

	cup := trackedLeague(45, 2026)
	cup.Type = league.TypeCup
	leagueRepo := newFakeLeagueRepo(cup)
	progressRepo := newFakeProgressRepo()

	policy := scope.Policy{
		ByCompetitionType: map[string]scope.TypeRule{
			league.TypeCup: {DisabledEndpoints: []string{"/standings"}},
		},
	}
	resolver := NewDependencyResolver(fetcher, leagueRepo, newFakeTeamRepo(), progressRepo, nil)
	service := NewStandingsService(fetcher, newFakeStandingRepo(), resolver,
		scope.NewResolver(policy, leagueRepo, nil), progressRepo, nil)

	done, err := service.RefreshDaily(context.Background(),
		[]league.Tracked{{ID: 45, Season: 2026}}, 5)
	require.NoError(t, err)
	require.Equal(t, 0, done)
	require.Empty(t, fetcher.calls)
}
