package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/blkn1/API-Football-Collector-sub000/internal/app"
	"github.com/blkn1/API-Football-Collector-sub000/internal/config"
	"github.com/blkn1/API-Football-Collector-sub000/internal/observability"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scheduler"
)

const (
	exitOK            = 0
	exitStartupFailed = 1
	exitEmergencyStop = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./configs"
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		logging.NewJSON(logging.LevelError).Error("load configuration", "error", err)
		return exitStartupFailed
	}

	logger := logging.NewJSON(logging.ParseLevel(cfg.Log.Level))
	logging.SetDefault(logger)
	defer logger.Sync() //nolint:errcheck

	shutdownUptrace, err := observability.InitUptrace(cfg.Obs, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return exitStartupFailed
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownUptrace(ctx)
	}()

	pprofSrv := observability.StartPprofServer(cfg.Obs, logger)
	defer observability.StopPprofServer(pprofSrv, logger, 5*time.Second) //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := scheduler.LoadCatalogue(filepath.Join(configDir, "jobs"))
	if err != nil {
		logger.Error("load job catalogue", "error", err)
		return exitStartupFailed
	}

	collector, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("build collector", "error", err)
		return exitStartupFailed
	}
	defer collector.Close() //nolint:errcheck

	if cfg.Features.BootstrapStaticOnStart {
		if err := collector.RunStaticBootstrap(ctx, cat); err != nil {
			if crerr.Is(err, ratelimit.ErrEmergencyStop) {
				logger.Error("emergency stop during bootstrap", "error", err)
				return exitEmergencyStop
			}
			logger.Error("static bootstrap failed", "error", err)
			return exitStartupFailed
		}
	}

	sched, err := scheduler.New(cfg.Scheduler.Timezone, logger)
	if err != nil {
		logger.Error("build scheduler", "error", err)
		return exitStartupFailed
	}
	sched.SetQuotaSnapshot(func() any { return collector.Bucket().Snapshot() })
	if err := collector.RegisterJobs(sched, cat); err != nil {
		logger.Error("register jobs", "error", err)
		return exitStartupFailed
	}
	sched.Start(ctx)
	defer sched.Stop()

	liveErr := make(chan error, 1)
	var wg conc.WaitGroup
	defer wg.Wait()

	if live := collector.NewLiveService(cat); live != nil {
		wg.Go(func() {
			liveErr <- live.Run(ctx)
		})
	} else {
		logger.Info("live loop disabled")
	}

	logger.Info("collector started",
		"tracked_leagues", len(cat.Tracked),
		"daily_jobs", len(cat.Daily),
		"timezone", cfg.Scheduler.Timezone,
	)

	ret := exitOK
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received", "quota", collector.Bucket().Snapshot())
	case err := <-liveErr:
		switch {
		case crerr.Is(err, ratelimit.ErrEmergencyStop):
			logger.Error("live loop stopped by emergency stop", "error", err)
			ret = exitEmergencyStop
		case err != nil:
			logger.Error("live loop failed", "error", err)
			ret = exitStartupFailed
		}
	case err := <-sched.Fatal():
		logger.Error("scheduler reported fatal error", "error", err)
		ret = exitEmergencyStop
	}

	// cancel the shared context before the deferred wg.Wait so the live
	// loop goroutine can drain
	stop()
	return ret
}
