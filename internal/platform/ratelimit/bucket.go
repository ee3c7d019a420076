package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
)

// ErrEmergencyStop is raised when the observed daily quota drops below the
// configured threshold. Callers must abort the current run and stop
// scheduling further upstream calls.
var ErrEmergencyStop = crerr.New("rate limiter emergency stop: daily quota exhausted")

const (
	headerDailyRemaining  = "x-ratelimit-requests-remaining"
	headerMinuteRemaining = "X-RateLimit-Remaining"

	acquirePollInterval = 100 * time.Millisecond
)

type Config struct {
	MaxTokens              float64
	RefillRatePerSecond    float64
	InitialTokens          float64
	EmergencyStopThreshold int
}

// Bucket is a thread-safe token bucket that additionally observes the
// upstream quota headers. The local bucket is clamped to the per-minute
// remaining reported by the API, and the daily remaining drives the
// emergency stop.
type Bucket struct {
	mu sync.Mutex

	maxTokens          float64
	refillRate         float64
	tokens             float64
	lastRefill         time.Time
	emergencyThreshold int

	dailyRemaining  int
	minuteRemaining int
	hasDaily        bool
	hasMinute       bool
	emergency       bool

	now func() time.Time
}

type Snapshot struct {
	Tokens          float64 `json:"tokens"`
	DailyRemaining  int     `json:"daily_remaining"`
	HasDaily        bool    `json:"has_daily"`
	MinuteRemaining int     `json:"minute_remaining"`
	EmergencyStop   bool    `json:"emergency_stop"`
}

func NewBucket(cfg Config) *Bucket {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1
	}
	if cfg.RefillRatePerSecond <= 0 {
		cfg.RefillRatePerSecond = cfg.MaxTokens / 60
	}
	initial := cfg.InitialTokens
	if initial < 0 {
		initial = 0
	}
	if initial > cfg.MaxTokens {
		initial = cfg.MaxTokens
	}

	now := time.Now
	return &Bucket{
		maxTokens:          cfg.MaxTokens,
		refillRate:         cfg.RefillRatePerSecond,
		tokens:             initial,
		lastRefill:         now(),
		emergencyThreshold: cfg.EmergencyStopThreshold,
		now:                now,
	}
}

// Acquire blocks until a token is available, the context is cancelled, or
// the emergency stop trips. The mutex is never held across a sleep so other
// tasks can refill and observe headers while a caller waits.
func (b *Bucket) Acquire(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refillLocked()

		if b.emergency {
			b.mu.Unlock()
			return ErrEmergencyStop
		}
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		b.mu.Unlock()

		timer := time.NewTimer(acquirePollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// UpdateFromHeaders reads the observed daily and minute quota from a
// response and clamps the local bucket. Crossing the emergency threshold
// here makes the next Acquire fail with ErrEmergencyStop.
func (b *Bucket) UpdateFromHeaders(h http.Header) {
	daily, hasDaily := headerInt(h, headerDailyRemaining)
	minute, hasMinute := headerInt(h, headerMinuteRemaining)

	b.mu.Lock()
	defer b.mu.Unlock()

	if hasMinute {
		b.minuteRemaining = minute
		b.hasMinute = true
		if float64(minute) < b.tokens {
			b.tokens = float64(minute)
		}
		if b.tokens < 0 {
			b.tokens = 0
		}
	}
	if hasDaily {
		// Quota only ever decreases within a day; ignore stale larger values
		// from responses that raced each other.
		if !b.hasDaily || daily < b.dailyRemaining {
			b.dailyRemaining = daily
		}
		b.hasDaily = true
		if b.emergencyThreshold > 0 && b.dailyRemaining < b.emergencyThreshold {
			b.emergency = true
		}
	}
}

// Reset clears the emergency flag. Used at run boundaries so each scheduled
// run re-checks the observed quota instead of staying dead forever.
func (b *Bucket) Reset() {
	b.mu.Lock()
	b.emergency = false
	b.hasDaily = false
	b.mu.Unlock()
}

func (b *Bucket) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Tokens:          b.tokens,
		DailyRemaining:  b.dailyRemaining,
		HasDaily:        b.hasDaily,
		MinuteRemaining: b.minuteRemaining,
		EmergencyStop:   b.emergency,
	}
}

func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
}

func headerInt(h http.Header, key string) (int, bool) {
	raw := strings.TrimSpace(h.Get(key))
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}
