package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/ratelimit"
)

const (
	// minTickInterval is the floor for interval triggers. Anything tighter
	// would burn the provider quota for no fresher data.
	minTickInterval = 15 * time.Second

	// misfireGrace drops a firing that could not start within a minute of
	// its scheduled time instead of stacking it behind the next one.
	misfireGrace = 60 * time.Second
)

// Runner is one job execution.
type Runner func(ctx context.Context) error

type entry struct {
	name  string
	run   Runner
	every time.Duration
	busy  atomic.Bool
}

// Scheduler drives the job catalogue: cron triggers through robfig/cron in
// the configured timezone, interval triggers through tickers. Every firing
// goes through the same non-reentrant execute path, so a slow run coalesces
// instead of stacking.
type Scheduler struct {
	cron      *cron.Cron
	logger    *logging.Logger
	intervals []*entry

	fatal  chan error
	cancel context.CancelFunc
	wg     sync.WaitGroup

	quota func() any
}

// New builds a scheduler whose cron expressions are interpreted in the given
// timezone. Stored timestamps are unaffected; this only moves the wall-clock
// meaning of "0 6 * * *".
func New(timezone string, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	loc := time.UTC
	if timezone != "" {
		parsed, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, crerr.Wrapf(err, "load scheduler timezone %q", timezone)
		}
		loc = parsed
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		logger: logger,
		fatal:  make(chan error, 1),
	}, nil
}

// SetQuotaSnapshot attaches a limiter snapshot to every job completion
// event.
func (s *Scheduler) SetQuotaSnapshot(fn func() any) {
	s.quota = fn
}

// AddCron attaches a runner to a cron expression.
func (s *Scheduler) AddCron(name, spec string, run Runner) error {
	e := &entry{name: name, run: run}
	_, err := s.cron.AddFunc(spec, func() {
		s.execute(context.Background(), e, time.Now())
	})
	if err != nil {
		return crerr.Wrapf(err, "schedule job %q with cron %q", name, spec)
	}
	return nil
}

// AddInterval attaches a runner to a ticker, flooring the period at
// minTickInterval.
func (s *Scheduler) AddInterval(name string, every time.Duration, run Runner) {
	if every < minTickInterval {
		s.logger.Warn("interval below floor, clamping",
			"job", name, "requested", every.String(), "floor", minTickInterval.String())
		every = minTickInterval
	}
	s.intervals = append(s.intervals, &entry{name: name, run: run, every: every})
}

// Start launches the cron engine and one goroutine per interval entry. It
// returns immediately; Stop shuts everything down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	for _, e := range s.intervals {
		e := e
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(e.every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case firedAt := <-ticker.C:
					s.execute(ctx, e, firedAt)
				}
			}
		}()
	}
}

// Stop halts the triggers without waiting for in-flight runs; the process is
// going down and a half-finished upsert is safe to abandon.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cron.Stop()
}

// Fatal delivers the first error that must terminate the process, which
// today means the limiter's emergency stop.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatal
}

func (s *Scheduler) execute(ctx context.Context, e *entry, scheduledAt time.Time) {
	if !e.busy.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still active, skipping firing", "job", e.name)
		return
	}
	defer e.busy.Store(false)

	if lateness := time.Since(scheduledAt); lateness > misfireGrace {
		s.logger.Warn("firing missed its grace window, dropping",
			"job", e.name, "lateness", lateness.String())
		return
	}

	started := time.Now()
	err := e.run(ctx)
	elapsed := time.Since(started)

	fields := []any{"job", e.name, "elapsed", elapsed.String()}
	if s.quota != nil {
		fields = append(fields, "quota", s.quota())
	}

	switch {
	case err == nil:
		s.logger.Info("job complete", fields...)
	case crerr.Is(err, context.Canceled):
		// shutdown, not a job failure
	case crerr.Is(err, ratelimit.ErrEmergencyStop):
		s.logger.Error("job hit emergency stop", append(fields, "error", err)...)
		select {
		case s.fatal <- err:
		default:
		}
	default:
		s.logger.Error("job failed", append(fields, "error", err)...)
	}
}
