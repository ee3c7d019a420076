package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeCatalogue(t *testing.T, static, daily, live string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"static.yaml": static,
		"daily.yaml":  daily,
		"live.yaml":   live,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

const dailyDoc = `
tracked_leagues:
  - id: 39
    name: Premier League
    season: 2026
  - id: 140
    name: La Liga
    season: 2026
jobs:
  - id: daily_fixtures_by_date
    trigger:
      cron: "0 6 * * *"
    params:
      mode: global_by_date
  - id: injuries_hourly
    trigger:
      interval_seconds: 3600
  - id: daily_standings
    enabled: false
    trigger:
      cron: "30 6 * * *"
`

const staticDoc = `
jobs:
  - id: bootstrap_countries
  - id: bootstrap_leagues
  - id: bootstrap_teams
    depends_on: [bootstrap_leagues]
`

const liveDoc = `
jobs:
  - id: live_fixtures
    trigger:
      interval_seconds: 20
`

func TestLoadCatalogueDecodesAllDocuments(t *testing.T) {
	dir := writeCatalogue(t, staticDoc, dailyDoc, liveDoc)

	cat, err := LoadCatalogue(dir)
	require.NoError(t, err)

	require.Len(t, cat.Tracked, 2)
	require.EqualValues(t, 39, cat.Tracked[0].ID)
	require.Equal(t, 2026, cat.Tracked[0].Season)

	require.Len(t, cat.Static, 3)
	require.Len(t, cat.Daily, 3)
	require.Len(t, cat.Live, 1)

	fixtures := cat.Daily[0]
	require.Equal(t, JobDailyFixtures, fixtures.ID)
	require.True(t, fixtures.IsEnabled())
	require.Equal(t, "0 6 * * *", fixtures.Trigger.Cron)
	require.Equal(t, "global_by_date", fixtures.Param("mode", "per_league"))

	require.False(t, cat.Daily[2].IsEnabled())
	require.Equal(t, time.Hour, cat.Daily[1].Trigger.Interval())
	require.Equal(t, []string{JobBootstrapLeagues}, cat.Static[2].DependsOn)
}

func TestLoadCatalogueInheritsBootstrapScope(t *testing.T) {
	dir := writeCatalogue(t, staticDoc, dailyDoc, liveDoc)

	cat, err := LoadCatalogue(dir)
	require.NoError(t, err)

	for _, job := range cat.Static {
		require.Len(t, job.TrackedLeagues, 2, "job %s", job.ID)
		require.Equal(t, 2026, job.Season, "job %s", job.ID)
	}
}

func TestLoadCatalogueAmbiguousSeasonStaysUnset(t *testing.T) {
	mixed := `
tracked_leagues:
  - id: 39
    season: 2026
  - id: 71
    season: 2025
jobs:
  - id: daily_fixtures_by_date
    trigger:
      cron: "0 6 * * *"
`
	dir := writeCatalogue(t, staticDoc, mixed, liveDoc)

	cat, err := LoadCatalogue(dir)
	require.NoError(t, err)

	_, ok := cat.TrackedSeason()
	require.False(t, ok)
	for _, job := range cat.Static {
		require.Zero(t, job.Season, "job %s", job.ID)
		require.Len(t, job.TrackedLeagues, 2)
	}
}

func TestLoadCatalogueRejectsMissingTrigger(t *testing.T) {
	broken := `
jobs:
  - id: injuries_hourly
`
	dir := writeCatalogue(t, staticDoc, broken, liveDoc)

	_, err := LoadCatalogue(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no trigger")
}

func TestLoadCatalogueRejectsDuplicateIDs(t *testing.T) {
	dup := `
jobs:
  - id: bootstrap_countries
  - id: bootstrap_countries
`
	dir := writeCatalogue(t, dup, dailyDoc, liveDoc)

	_, err := LoadCatalogue(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate job id")
}

func TestAddIntervalFloorsTightPeriods(t *testing.T) {
	s, err := New("UTC", nil)
	require.NoError(t, err)

	s.AddInterval("live_fixtures", 5*time.Second, func(ctx context.Context) error { return nil })
	require.Equal(t, minTickInterval, s.intervals[0].every)

	s.AddInterval("stale_live_refresh", 5*time.Minute, func(ctx context.Context) error { return nil })
	require.Equal(t, 5*time.Minute, s.intervals[1].every)
}

func TestExecuteCoalescesOverlappingRuns(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	var runs int
	var mu sync.Mutex
	e := &entry{name: "slow", run: func(ctx context.Context) error {
		mu.Lock()
		runs++
		mu.Unlock()
		close(started)
		<-release
		return nil
	}}

	go s.execute(context.Background(), e, time.Now())
	<-started

	// second firing while the first still holds the slot
	s.execute(context.Background(), e, time.Now())
	close(release)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, runs)
}

func TestExecuteDropsMisfiredRuns(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)

	ran := false
	e := &entry{name: "late", run: func(ctx context.Context) error {
		ran = true
		return nil
	}}
	s.execute(context.Background(), e, time.Now().Add(-2*time.Minute))
	require.False(t, ran)

	s.execute(context.Background(), e, time.Now())
	require.True(t, ran)
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New("Mars/Olympus_Mons", nil)
	require.Error(t, err)
}
