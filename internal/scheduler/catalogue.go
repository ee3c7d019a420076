package scheduler

import (
	"os"
	"path/filepath"
	"time"

	crerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
)

// Job ids that participate in bootstrap scope inheritance: when their own
// document carries no tracked leagues or season, they borrow the daily
// document's tracked list and, when all tracked pairs agree, its season.
const (
	JobBootstrapCountries = "bootstrap_countries"
	JobBootstrapTimezones = "bootstrap_timezones"
	JobBootstrapLeagues   = "bootstrap_leagues"
	JobBootstrapTeams     = "bootstrap_teams"

	JobDailyFixtures        = "daily_fixtures_by_date"
	JobDailyStandings       = "daily_standings"
	JobInjuriesHourly       = "injuries_hourly"
	JobTopScorersDaily      = "top_scorers_daily"
	JobTeamStatsRefresh     = "team_statistics_refresh"
	JobDetailsBackfill      = "fixture_details_backfill_90d"
	JobDetailsFinalize      = "fixture_details_recent_finalize"
	JobFixturesBackfill     = "fixtures_backfill_league_season"
	JobStandingsBackfill    = "standings_backfill_league_season"
	JobSeasonRolloverWatch  = "season_rollover_watch"
	JobStaleLiveRefresh     = "stale_live_refresh"
	JobStaleSchedFinalize   = "stale_scheduled_finalize"
	JobAutoFinish           = "auto_finish_stale_fixtures"
	JobAutoFinishVerify     = "auto_finish_verification"
	JobCoverageReport       = "coverage_report"
	JobVenueEnrichment      = "venue_stub_enrichment"
	JobLiveFixtures         = "live_fixtures"
)

// Trigger is either a cron expression or a fixed interval. Exactly one must
// be set on an enabled job.
type Trigger struct {
	Cron            string `yaml:"cron"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

func (t Trigger) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

type Job struct {
	ID        string            `yaml:"id" validate:"required"`
	Enabled   *bool             `yaml:"enabled"`
	Type      string            `yaml:"type"`
	Endpoint  string            `yaml:"endpoint"`
	Params    map[string]string `yaml:"params"`
	Trigger   Trigger           `yaml:"trigger"`
	DependsOn []string          `yaml:"depends_on"`

	// Per-job scope. Empty on bootstrap jobs means "inherit from daily".
	TrackedLeagues []league.Tracked `yaml:"tracked_leagues"`
	Season         int              `yaml:"season"`
}

// IsEnabled defaults to true; jobs opt out explicitly.
func (j Job) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

func (j Job) Param(key, fallback string) string {
	if v, ok := j.Params[key]; ok && v != "" {
		return v
	}
	return fallback
}

type document struct {
	TrackedLeagues []league.Tracked `yaml:"tracked_leagues"`
	Jobs           []Job            `yaml:"jobs"`
}

// Catalogue is the decoded job configuration. Tracked comes from the daily
// document and is the authoritative scope for every job that does not carry
// its own.
type Catalogue struct {
	Tracked []league.Tracked
	Static  []Job
	Daily   []Job
	Live    []Job
}

// LoadCatalogue reads static.yaml, daily.yaml and live.yaml from dir and
// applies bootstrap scope inheritance.
func LoadCatalogue(dir string) (*Catalogue, error) {
	staticDoc, err := readDocument(filepath.Join(dir, "static.yaml"))
	if err != nil {
		return nil, err
	}
	dailyDoc, err := readDocument(filepath.Join(dir, "daily.yaml"))
	if err != nil {
		return nil, err
	}
	liveDoc, err := readDocument(filepath.Join(dir, "live.yaml"))
	if err != nil {
		return nil, err
	}

	cat := &Catalogue{
		Tracked: dailyDoc.TrackedLeagues,
		Static:  staticDoc.Jobs,
		Daily:   dailyDoc.Jobs,
		Live:    liveDoc.Jobs,
	}
	cat.inheritBootstrapScope()

	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, crerr.Wrapf(err, "read %s", filepath.Base(path))
	}
	doc := &document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, crerr.Wrapf(err, "parse %s", filepath.Base(path))
	}
	return doc, nil
}

// inheritBootstrapScope fills empty scope fields on the bootstrap jobs from
// the daily tracked list. The season is inherited only when every tracked
// pair names the same one; an ambiguous season stays unset and the job must
// spell it out itself.
func (c *Catalogue) inheritBootstrapScope() {
	season, unambiguous := c.TrackedSeason()
	for i := range c.Static {
		job := &c.Static[i]
		switch job.ID {
		case JobBootstrapLeagues, JobBootstrapTeams, JobBootstrapCountries, JobBootstrapTimezones:
		default:
			continue
		}
		if len(job.TrackedLeagues) == 0 {
			job.TrackedLeagues = c.Tracked
		}
		if job.Season == 0 && unambiguous {
			job.Season = season
		}
	}
}

// TrackedSeason reports the single season shared by every tracked league,
// when there is one.
func (c *Catalogue) TrackedSeason() (int, bool) {
	season := 0
	for _, tl := range c.Tracked {
		if season == 0 {
			season = tl.Season
			continue
		}
		if tl.Season != season {
			return 0, false
		}
	}
	return season, season != 0
}

func (c *Catalogue) validate() error {
	seen := make(map[string]struct{})
	for _, group := range [][]Job{c.Static, c.Daily, c.Live} {
		for _, job := range group {
			if job.ID == "" {
				return crerr.New("job without id in catalogue")
			}
			if _, dup := seen[job.ID]; dup {
				return crerr.Newf("duplicate job id %q in catalogue", job.ID)
			}
			seen[job.ID] = struct{}{}
			if !job.IsEnabled() {
				continue
			}
			if job.Trigger.Cron != "" && job.Trigger.IntervalSeconds > 0 {
				return crerr.Newf("job %q sets both cron and interval triggers", job.ID)
			}
		}
	}

	// scheduled jobs need a trigger; static jobs run once at startup
	for _, job := range append(append([]Job{}, c.Daily...), c.Live...) {
		if !job.IsEnabled() {
			continue
		}
		if job.Trigger.Cron == "" && job.Trigger.IntervalSeconds <= 0 {
			return crerr.Newf("job %q has no trigger", job.ID)
		}
	}
	return nil
}
