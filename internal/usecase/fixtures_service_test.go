package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
)

func fixtureItem(id, leagueID int64, season int, home, away int64) string {
	return fmt.Sprintf(`{
		"fixture": {
			"id": %d,
			"referee": "",
			"timezone": "UTC",
			"date": "2026-08-22T15:00:00+00:00",
			"timestamp": 1787756400,
			"venue": {"id": null, "name": "", "city": ""},
			"status": {"long": "Not Started", "short": "NS", "elapsed": null}
		},
		"league": {"id": %d, "name": "Test League", "season": %d, "round": "Round 1"},
		"teams": {"home": {"id": %d, "name": "Home"}, "away": {"id": %d, "name": "Away"}},
		"goals": {"home": null, "away": null},
		"score": {"halftime": {"home": null, "away": null}, "fulltime": {"home": null, "away": null}}
	}`, id, leagueID, season, home, away)
}

func trackedLeague(id int64, season int) league.League {
	return league.League{
		ID:   id,
		Name: "Test League",
		Type: league.TypeLeague,
		Seasons: []league.Season{
			{Year: season, Start: "2026-08-01", End: "2027-05-31", Current: true},
		},
	}
}

func completedBootstrap(repo *fakeProgressRepo, leagueID int64, season int) {
	_ = repo.UpsertTeamBootstrap(context.Background(), progress.TeamBootstrap{
		LeagueID:  leagueID,
		Season:    season,
		Completed: true,
	})
}

func TestSyncByDateDeduplicatesAcrossPages(t *testing.T) {
	// page one carries fixtures 1 and 2, page two repeats 2 and adds 3; the
	// repeated id must count once with the later page winning
	pages := map[string]*apifootball.Response{
		"": envelopeResponse([]string{
			fixtureItem(1, 39, 2026, 100, 101),
			fixtureItem(2, 39, 2026, 102, 103),
		}, 1, 2),
		"2": envelopeResponse([]string{
			fixtureItem(2, 39, 2026, 102, 103),
			fixtureItem(3, 39, 2026, 104, 105),
		}, 2, 2),
	}
	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		require.Equal(t, "/fixtures", endpoint)
		require.Equal(t, "2026-08-22", params["date"])
		require.Equal(t, "UTC", params["timezone"])
		return pages[params["page"]], nil
	}}

	fixtureRepo := &fakeFixtureRepo{}
	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026))
	teamRepo := newFakeTeamRepo(100, 101, 102, 103, 104, 105)
	progressRepo := newFakeProgressRepo()
	completedBootstrap(progressRepo, 39, 2026)

	resolver := NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, nil)
	service := NewFixtureService(fetcher, fixtureRepo, nil, resolver, nil)

	result, err := service.SyncByDate(context.Background(), mustDate(t, "2026-08-22"))
	require.NoError(t, err)

	require.Equal(t, 2, result.Pages)
	require.Equal(t, 3, result.Unique)
	require.Equal(t, 3, result.Written)
	require.Len(t, fixtureRepo.upserted, 3)

	// league and teams were already known, so only the two page fetches hit
	// the upstream
	require.Len(t, fetcher.calls, 2)
}

func TestSyncDailyContinuesPastFailingLeague(t *testing.T) {
	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		if params["league"] == "39" {
			return nil, fmt.Errorf("%w: status=500", apifootball.ErrServerError)
		}
		return envelopeResponse([]string{fixtureItem(10, 140, 2026, 200, 201)}, 1, 1), nil
	}}

	fixtureRepo := &fakeFixtureRepo{}
	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026), trackedLeague(140, 2026))
	teamRepo := newFakeTeamRepo(200, 201)
	progressRepo := newFakeProgressRepo()
	completedBootstrap(progressRepo, 140, 2026)

	resolver := NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, nil)
	service := NewFixtureService(fetcher, fixtureRepo, nil, resolver, nil)

	tracked := []league.Tracked{
		{ID: 39, Season: 2026},
		{ID: 140, Season: 2026},
	}
	result, err := service.SyncDaily(context.Background(), tracked, mustDate(t, "2026-08-22"))
	require.NoError(t, err)

	require.Equal(t, 1, result.Failures)
	require.Equal(t, 1, result.Written)
	require.Len(t, fixtureRepo.upserted, 1)
	require.EqualValues(t, 10, fixtureRepo.upserted[0].ID)
}

func TestSyncDailySkipsGroupWhenDependenciesUnavailable(t *testing.T) {
	fetcher := &stubFetcher{handler: func(endpoint string, params map[string]string) (*apifootball.Response, error) {
		switch endpoint {
		case "/fixtures":
			return envelopeResponse([]string{fixtureItem(1, 39, 2026, 100, 101)}, 1, 1), nil
		case "/teams":
			// roster fetch comes back empty, the referenced teams stay missing
			return envelopeResponse(nil, 1, 1), nil
		default:
			return envelopeResponse(nil, 1, 1), nil
		}
	}}

	fixtureRepo := &fakeFixtureRepo{}
	leagueRepo := newFakeLeagueRepo(trackedLeague(39, 2026))
	teamRepo := newFakeTeamRepo()
	progressRepo := newFakeProgressRepo()

	resolver := NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, nil)
	service := NewFixtureService(fetcher, fixtureRepo, nil, resolver, nil)

	result, err := service.SyncDaily(context.Background(),
		[]league.Tracked{{ID: 39, Season: 2026}}, mustDate(t, "2026-08-22"))
	require.NoError(t, err)

	// roster refreshed but the referenced teams never appeared; nothing may
	// reach the fixtures table with dangling FKs... the batch is dropped
	require.Equal(t, 0, result.Written)
	require.Empty(t, fixtureRepo.upserted)
}
