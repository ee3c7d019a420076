package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
)

// Config is everything the collector process needs: the YAML documents under
// the configs directory plus environment-sourced settings.
type Config struct {
	API         API         `validate:"required"`
	RateLimiter RateLimiter `validate:"required"`
	Coverage    Coverage
	ScopePolicy scope.Policy
	Database    Database
	Redis       Redis
	Log         Log
	Scheduler   Scheduler
	Features    Features
	Obs         Observability
}

type API struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env" validate:"required"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" validate:"gte=0"`
	DefaultTimezone string `yaml:"default_timezone"`

	// Key is resolved from the environment variable named by APIKeyEnv.
	Key string `yaml:"-" validate:"required"`
}

func (a API) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type RateLimiter struct {
	TokenBucketPerMinute   int `yaml:"token_bucket_per_minute" validate:"gt=0"`
	MinuteSoftLimit        int `yaml:"minute_soft_limit" validate:"gte=0"`
	DailyLimit             int `yaml:"daily_limit" validate:"gte=0"`
	EmergencyStopThreshold int `yaml:"emergency_stop_threshold" validate:"gte=0"`
}

type Coverage struct {
	ExpectedFixtures map[int64]int `yaml:"expected_fixtures"`
	MaxLagMinutes    struct {
		Daily int `yaml:"daily"`
		Live  int `yaml:"live"`
	} `yaml:"max_lag_minutes"`
	Weights struct {
		Count     float64 `yaml:"count"`
		Freshness float64 `yaml:"freshness"`
		Pipeline  float64 `yaml:"pipeline"`
	} `yaml:"weights"`
}

type Database struct {
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MinConns int
	MaxConns int
}

// DSN prefers DATABASE_URL and otherwise assembles the POSTGRES_* parts.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type Redis struct {
	URL string
}

type Log struct {
	Level string
	File  string
}

type Scheduler struct {
	// Timezone affects cron interpretation only; stored timestamps stay UTC.
	Timezone string
}

type Observability struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	UptraceEnabled bool
	UptraceDSN     string

	PprofEnabled bool
	PprofAddr    string
}

type Features struct {
	BootstrapStaticOnStart  bool
	EnableLiveLoop          bool
	DryRun                  bool
	VenuesBackfillMaxPerRun int
	DetailsMaxPerRun        int
	TeamStatsMaxPerRun      int
	StandingsPairsPerRun    int
}

// Load reads .env (when present), the YAML documents under configDir, and
// the environment. Validation failures abort startup.
func Load(configDir string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := readYAML(filepath.Join(configDir, "api.yaml"), &cfg.API); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(configDir, "rate_limiter.yaml"), &cfg.RateLimiter); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(configDir, "coverage.yaml"), &cfg.Coverage); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(configDir, "scope_policy.yaml"), &cfg.ScopePolicy); err != nil {
		return nil, err
	}

	if cfg.API.APIKeyEnv == "" {
		cfg.API.APIKeyEnv = "APIFOOTBALL_API_KEY"
	}
	cfg.API.Key = strings.TrimSpace(os.Getenv(cfg.API.APIKeyEnv))

	cfg.Database = Database{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     getEnv("POSTGRES_DB", "apifootball"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MinConns: getEnvAsInt("POSTGRES_MIN_CONNS", 1),
		MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 5),
	}
	cfg.Redis = Redis{URL: os.Getenv("REDIS_URL")}
	cfg.Log = Log{
		Level: getEnv("LOG_LEVEL", "info"),
		File:  os.Getenv("LOG_FILE"),
	}
	cfg.Scheduler = Scheduler{Timezone: getEnv("SCHEDULER_TIMEZONE", "UTC")}
	cfg.Obs = Observability{
		ServiceName:    getEnv("SERVICE_NAME", "apifootball-collector"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		Environment:    getEnv("APP_ENV", "development"),
		UptraceEnabled: getEnvAsBool("UPTRACE_ENABLED", false),
		UptraceDSN:     os.Getenv("UPTRACE_DSN"),
		PprofEnabled:   getEnvAsBool("PPROF_ENABLED", false),
		PprofAddr:      getEnv("PPROF_ADDR", "localhost:6060"),
	}
	cfg.Features = Features{
		BootstrapStaticOnStart:  getEnvAsBool("BOOTSTRAP_STATIC_ON_START", true),
		EnableLiveLoop:          getEnvAsBool("ENABLE_LIVE_LOOP", true),
		DryRun:                  getEnvAsBool("DRY_RUN", false),
		VenuesBackfillMaxPerRun: getEnvAsInt("VENUES_BACKFILL_MAX_PER_RUN", 0),
		DetailsMaxPerRun:        getEnvAsInt("FIXTURE_DETAILS_MAX_PER_RUN", 30),
		TeamStatsMaxPerRun:      getEnvAsInt("TEAM_STATISTICS_MAX_PER_RUN", 20),
		StandingsPairsPerRun:    getEnvAsInt("STANDINGS_PAIRS_PER_RUN", 5),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, crerr.Wrap(err, "validate configuration")
	}

	w := &cfg.Coverage.Weights
	if w.Count == 0 && w.Freshness == 0 && w.Pipeline == 0 {
		w.Count, w.Freshness, w.Pipeline = 0.5, 0.3, 0.2
	}
	if sum := w.Count + w.Freshness + w.Pipeline; math.Abs(sum-1.0) > 0.001 {
		return nil, crerr.Newf("coverage weights must sum to 1.0, got %.3f", sum)
	}
	return cfg, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return crerr.Wrapf(err, "read %s", filepath.Base(path))
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return crerr.Wrapf(err, "parse %s", filepath.Base(path))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
