package app

import (
	"context"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/config"
	"github.com/blkn1/API-Football-Collector-sub000/internal/delta"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/infrastructure/repository/postgres"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/resilience"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scheduler"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
	"github.com/blkn1/API-Football-Collector-sub000/internal/usecase"
)

// liveCacheTTL bounds delta entries in Redis; any real match is long over
// after this.
const liveCacheTTL = 6 * time.Hour

// App is the composition root of the collector: one database pool, one
// limiter, one upstream client, and every service wired on top of them.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	db     *sqlx.DB
	bucket *ratelimit.Bucket

	fetcher     usecase.Fetcher
	fixtureRepo fixture.Repository
	resolver    *usecase.DependencyResolver

	bootstrap   *usecase.BootstrapService
	fixtures    *usecase.FixtureService
	standings   *usecase.StandingsService
	injuries    *usecase.InjuryService
	scorers     *usecase.ScorerService
	teamStats   *usecase.TeamStatsService
	maintenance *usecase.MaintenanceService
	backfill    *usecase.BackfillService
	rollover    *usecase.RolloverService
	coverage    *usecase.CoverageService
	venues      *usecase.VenueService

	liveStore delta.Store
}

func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	db, err := postgres.Open(ctx, postgres.PoolConfig{
		DSN:      cfg.Database.DSN(),
		MinConns: cfg.Database.MinConns,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", "db", dbNameFromURL(cfg.Database.DSN()))

	perMinute := float64(cfg.RateLimiter.TokenBucketPerMinute)
	maxTokens := perMinute
	if cfg.RateLimiter.MinuteSoftLimit > 0 && float64(cfg.RateLimiter.MinuteSoftLimit) < maxTokens {
		maxTokens = float64(cfg.RateLimiter.MinuteSoftLimit)
	}
	bucket := ratelimit.NewBucket(ratelimit.Config{
		MaxTokens:              maxTokens,
		RefillRatePerSecond:    perMinute / 60,
		InitialTokens:          maxTokens,
		EmergencyStopThreshold: cfg.RateLimiter.EmergencyStopThreshold,
	})

	client := apifootball.NewClient(apifootball.ClientConfig{
		BaseURL:        cfg.API.BaseURL,
		APIKey:         cfg.API.Key,
		Timeout:        cfg.API.Timeout(),
		Logger:         logger,
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
	})

	rawRepo := postgres.NewRawRepository(db)
	fixtureRepo := postgres.NewFixtureRepository(db)
	leagueRepo := postgres.NewLeagueRepository(db)
	teamRepo := postgres.NewTeamRepository(db)
	referenceRepo := postgres.NewReferenceRepository(db)
	standingRepo := postgres.NewStandingRepository(db)
	injuryRepo := postgres.NewInjuryRepository(db)
	scorerRepo := postgres.NewScorerRepository(db)
	teamStatsRepo := postgres.NewTeamStatsRepository(db)
	progressRepo := postgres.NewProgressRepository(db)
	coverageRepo := postgres.NewCoverageRepository(db)

	fetcher := usecase.NewHTTPFetcher(client, bucket, rawRepo, logger, cfg.Features.DryRun)
	resolver := usecase.NewDependencyResolver(fetcher, leagueRepo, teamRepo, progressRepo, logger)
	scopeResolver := scope.NewResolver(cfg.ScopePolicy, leagueRepo, logger)

	var liveStore delta.Store
	if cfg.Redis.URL != "" {
		store, err := delta.NewRedisStoreFromURL(cfg.Redis.URL)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		liveStore = store
	} else {
		logger.Warn("REDIS_URL not set, live delta cache is process-local")
		liveStore = delta.NewMemoryStore()
	}

	fixtureService := usecase.NewFixtureService(fetcher, fixtureRepo, rawRepo, resolver, logger)

	return &App{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		bucket:      bucket,
		fetcher:     fetcher,
		fixtureRepo: fixtureRepo,
		resolver:    resolver,
		bootstrap:   usecase.NewBootstrapService(fetcher, referenceRepo, leagueRepo, teamRepo, resolver, logger),
		fixtures:    fixtureService,
		standings:   usecase.NewStandingsService(fetcher, standingRepo, resolver, scopeResolver, progressRepo, logger),
		injuries:    usecase.NewInjuryService(fetcher, injuryRepo, scopeResolver, logger),
		scorers:     usecase.NewScorerService(fetcher, scorerRepo, scopeResolver, logger),
		teamStats:   usecase.NewTeamStatsService(fetcher, teamStatsRepo, fixtureRepo, progressRepo, scopeResolver, logger),
		maintenance: usecase.NewMaintenanceService(fetcher, fixtureRepo, bucket, logger),
		backfill:    usecase.NewBackfillService(fetcher, fixtureService, progressRepo, scopeResolver, logger),
		rollover:    usecase.NewRolloverService(fetcher, logger),
		coverage: usecase.NewCoverageService(fixtureRepo, injuryRepo, scorerRepo, teamStatsRepo,
			rawRepo, coverageRepo, scopeResolver, cfg.Coverage.ExpectedFixtures,
			cfg.Coverage.MaxLagMinutes.Daily,
			cfg.Coverage.MaxLagMinutes.Live,
			usecase.CoverageWeights{
				Count:     cfg.Coverage.Weights.Count,
				Freshness: cfg.Coverage.Weights.Freshness,
				Pipeline:  cfg.Coverage.Weights.Pipeline,
			}, logger),
		venues:    usecase.NewVenueService(fetcher, teamRepo, logger),
		liveStore: liveStore,
	}, nil
}

// Bucket exposes the limiter for shutdown snapshots.
func (a *App) Bucket() *ratelimit.Bucket { return a.bucket }

func (a *App) Close() error {
	return a.db.Close()
}

// RunStaticBootstrap executes the enabled static jobs once, in catalogue
// order. Each loader is idempotent and skips populated destinations unless
// forced.
func (a *App) RunStaticBootstrap(ctx context.Context, cat *scheduler.Catalogue) error {
	for _, job := range cat.Static {
		if !job.IsEnabled() {
			continue
		}
		var err error
		switch job.ID {
		case scheduler.JobBootstrapCountries:
			_, err = a.bootstrap.BootstrapCountries(ctx, false)
		case scheduler.JobBootstrapTimezones:
			_, err = a.bootstrap.BootstrapTimezones(ctx, false)
		case scheduler.JobBootstrapLeagues:
			_, err = a.bootstrap.BootstrapLeagues(ctx, job.TrackedLeagues)
		case scheduler.JobBootstrapTeams:
			_, err = a.bootstrap.BootstrapTeams(ctx, job.TrackedLeagues)
		default:
			a.logger.Warn("unknown static job, skipping", "job", job.ID)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RegisterJobs binds every enabled daily job to its trigger. Unknown ids are
// logged and skipped so a newer catalogue does not brick an older binary.
func (a *App) RegisterJobs(sched *scheduler.Scheduler, cat *scheduler.Catalogue) error {
	for _, job := range cat.Daily {
		if !job.IsEnabled() {
			continue
		}
		run := a.runnerFor(job, cat)
		if run == nil {
			a.logger.Warn("unknown job id in catalogue, skipping", "job", job.ID)
			continue
		}
		if job.Trigger.Cron != "" {
			if err := sched.AddCron(job.ID, job.Trigger.Cron, run); err != nil {
				return err
			}
			continue
		}
		sched.AddInterval(job.ID, job.Trigger.Interval(), run)
	}
	return nil
}

// NewLiveService builds the live loop from the live catalogue document, or
// returns nil when the loop is disabled.
func (a *App) NewLiveService(cat *scheduler.Catalogue) *usecase.LiveService {
	if !a.cfg.Features.EnableLiveLoop {
		return nil
	}
	interval := 20 * time.Second
	for _, job := range cat.Live {
		if job.ID == scheduler.JobLiveFixtures {
			if !job.IsEnabled() {
				return nil
			}
			if job.Trigger.IntervalSeconds > 0 {
				interval = job.Trigger.Interval()
			}
		}
	}
	detector := delta.NewDetector(a.liveStore, liveCacheTTL, a.logger)
	return usecase.NewLiveService(a.fetcher, a.fixtureRepo, a.resolver,
		detector, cat.Tracked, interval, a.logger)
}

func (a *App) runnerFor(job scheduler.Job, cat *scheduler.Catalogue) scheduler.Runner {
	tracked := cat.Tracked
	feats := a.cfg.Features

	switch job.ID {
	case scheduler.JobDailyFixtures:
		mode := job.Param("mode", "per_league")
		return func(ctx context.Context) error {
			if mode == "global_by_date" {
				_, err := a.fixtures.SyncByDate(ctx, time.Now().UTC())
				return err
			}
			_, err := a.fixtures.SyncDaily(ctx, tracked, time.Now().UTC())
			return err
		}
	case scheduler.JobDailyStandings:
		return func(ctx context.Context) error {
			_, err := a.standings.RefreshDaily(ctx, tracked, feats.StandingsPairsPerRun)
			return err
		}
	case scheduler.JobInjuriesHourly:
		return func(ctx context.Context) error {
			_, err := a.injuries.Sync(ctx, tracked)
			return err
		}
	case scheduler.JobTopScorersDaily:
		return func(ctx context.Context) error {
			_, err := a.scorers.Sync(ctx, tracked)
			return err
		}
	case scheduler.JobTeamStatsRefresh:
		refresh := time.Duration(paramInt(job, "refresh_interval_hours", 24)) * time.Hour
		return func(ctx context.Context) error {
			_, err := a.teamStats.Sync(ctx, tracked, feats.TeamStatsMaxPerRun, refresh)
			return err
		}
	case scheduler.JobDetailsBackfill:
		return func(ctx context.Context) error {
			_, err := a.fixtures.BackfillDetails(ctx, feats.DetailsMaxPerRun)
			return err
		}
	case scheduler.JobDetailsFinalize:
		return func(ctx context.Context) error {
			if _, err := a.fixtures.FinalizeRecent(ctx, feats.DetailsMaxPerRun); err != nil {
				return err
			}
			_, err := a.fixtures.CaptureKickoffLineups(ctx, feats.DetailsMaxPerRun)
			return err
		}
	case scheduler.JobFixturesBackfill:
		maxPages := paramInt(job, "max_pages_per_pair", 3)
		return func(ctx context.Context) error {
			_, err := a.backfill.Run(ctx, tracked, maxPages)
			return err
		}
	case scheduler.JobStandingsBackfill:
		return func(ctx context.Context) error {
			_, err := a.standings.RefreshAll(ctx, tracked)
			return err
		}
	case scheduler.JobSeasonRolloverWatch:
		return func(ctx context.Context) error {
			_, err := a.rollover.Check(ctx, tracked)
			return err
		}
	case scheduler.JobStaleLiveRefresh:
		staleAfter := time.Duration(paramInt(job, "stale_after_minutes", 30)) * time.Minute
		return func(ctx context.Context) error {
			_, err := a.maintenance.RefreshStaleLive(ctx, staleAfter, 100)
			return err
		}
	case scheduler.JobStaleSchedFinalize:
		overdue := time.Duration(paramInt(job, "overdue_minutes", 180)) * time.Minute
		return func(ctx context.Context) error {
			_, err := a.maintenance.FinalizeStaleScheduled(ctx, overdue, 100)
			return err
		}
	case scheduler.JobAutoFinish:
		threshold := time.Duration(paramInt(job, "kickoff_threshold_hours", 4)) * time.Hour
		safetyLag := time.Duration(paramInt(job, "safety_lag_hours", 2)) * time.Hour
		return func(ctx context.Context) error {
			_, err := a.maintenance.AutoFinish(ctx, threshold, safetyLag, 100)
			return err
		}
	case scheduler.JobAutoFinishVerify:
		floor := paramInt(job, "min_daily_remaining", 500)
		return func(ctx context.Context) error {
			_, err := a.maintenance.VerifyAutoFinished(ctx, floor, 100)
			return err
		}
	case scheduler.JobCoverageReport:
		return func(ctx context.Context) error {
			_, err := a.coverage.Compute(ctx, tracked)
			return err
		}
	case scheduler.JobVenueEnrichment:
		return func(ctx context.Context) error {
			_, err := a.venues.EnrichStubs(ctx, feats.VenuesBackfillMaxPerRun)
			return err
		}
	default:
		return nil
	}
}

func paramInt(job scheduler.Job, key string, fallback int) int {
	raw := job.Param(key, "")
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
