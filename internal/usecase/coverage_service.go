package usecase

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/coverage"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/injury"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/rawdata"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/scorer"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/teamstats"
	"github.com/blkn1/API-Football-Collector-sub000/internal/platform/logging"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
)

const (
	// pipelineWindow is how far back archived calls count toward the
	// pipeline dimension.
	pipelineWindow = 24 * time.Hour

	// detailCoverageWindow bounds the finished fixtures the per-fixture
	// detail endpoints are scored against.
	detailCoverageWindow = 7 * 24 * time.Hour
	detailCoverageLimit  = 2000

	// unknownLagMinutes is the sentinel lag for pairs that have never been
	// written.
	unknownLagMinutes = 9999

	lowCountThreshold = 80.0
)

// detailEndpoints are scored against the set of recently finished fixtures
// rather than a configured expectation.
var detailEndpoints = []string{
	"/fixtures/events",
	"/fixtures/statistics",
	"/fixtures/lineups",
	"/fixtures/players",
}

// CoverageWeights splits the overall score across the three dimensions. They
// must sum to one; the count weight is redistributed when no expectation
// exists.
type CoverageWeights struct {
	Count     float64
	Freshness float64
	Pipeline  float64
}

// CoverageService scores ingestion health per (league, season, endpoint) and
// writes the snapshots to the mart tier.
type CoverageService struct {
	fixtures fixture.Repository
	injuries injury.Repository
	scorers  scorer.Repository
	stats    teamstats.Repository
	raw      rawdata.Repository
	reports  coverage.Repository
	scope    *scope.Resolver

	expectedFixtures map[int64]int
	maxLagMinutes    int
	liveLagMinutes   int
	weights          CoverageWeights
	logger           *logging.Logger
	now              func() time.Time
}

func NewCoverageService(
	fixtureRepo fixture.Repository,
	injuryRepo injury.Repository,
	scorerRepo scorer.Repository,
	statsRepo teamstats.Repository,
	rawRepo rawdata.Repository,
	reportRepo coverage.Repository,
	scopeResolver *scope.Resolver,
	expectedFixtures map[int64]int,
	maxLagMinutes int,
	liveLagMinutes int,
	weights CoverageWeights,
	logger *logging.Logger,
) *CoverageService {
	if logger == nil {
		logger = logging.Default()
	}
	if maxLagMinutes <= 0 {
		maxLagMinutes = 24 * 60
	}
	if liveLagMinutes <= 0 {
		liveLagMinutes = 30
	}
	return &CoverageService{
		fixtures:         fixtureRepo,
		injuries:         injuryRepo,
		scorers:          scorerRepo,
		stats:            statsRepo,
		raw:              rawRepo,
		reports:          reportRepo,
		scope:            scopeResolver,
		expectedFixtures: expectedFixtures,
		maxLagMinutes:    maxLagMinutes,
		liveLagMinutes:   liveLagMinutes,
		weights:          weights,
		logger:           logger,
		now:              time.Now,
	}
}

// Compute scores every in-scope (pair, endpoint) combination and replaces the
// mart snapshots, then refreshes the rollup views.
func (s *CoverageService) Compute(ctx context.Context, tracked []league.Tracked) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "CoverageService.Compute")
	defer span.End()

	finalsByPair, err := s.recentFinalsByPair(ctx)
	if err != nil {
		return 0, err
	}

	var reports []coverage.Report
	for _, t := range tracked {
		pair := scope.LeagueSeason{LeagueID: t.ID, Season: t.Season}

		pairReports, err := s.scorePair(ctx, pair, finalsByPair[pair])
		if err != nil {
			s.logger.ErrorContext(ctx, "coverage scoring failed",
				"league_id", pair.LeagueID, "season", pair.Season, "error", err)
			continue
		}
		reports = append(reports, pairReports...)
	}

	if len(reports) == 0 {
		return 0, nil
	}
	if err := s.reports.Upsert(ctx, reports); err != nil {
		return 0, crerr.Wrap(err, "write coverage snapshots")
	}
	if err := s.reports.RefreshViews(ctx); err != nil {
		s.logger.ErrorContext(ctx, "coverage view refresh failed", "error", err)
	}
	s.logger.InfoContext(ctx, "coverage computation complete", "reports", len(reports))
	return len(reports), nil
}

func (s *CoverageService) scorePair(ctx context.Context, pair scope.LeagueSeason, finals []int64) ([]coverage.Report, error) {
	var reports []coverage.Report

	appendReport := func(endpoint string, build func() (coverage.Report, error)) error {
		if decision := s.scope.Decide(ctx, pair.LeagueID, pair.Season, endpoint); !decision.InScope {
			return nil
		}
		report, err := build()
		if err != nil {
			return err
		}
		reports = append(reports, report)
		return nil
	}

	if err := appendReport("/fixtures", func() (coverage.Report, error) {
		return s.scoreFixtures(ctx, pair)
	}); err != nil {
		return nil, err
	}
	if err := appendReport("/injuries", func() (coverage.Report, error) {
		return s.scoreTable(ctx, pair, "/injuries", s.injuries.Count, s.injuries.LastUpdate)
	}); err != nil {
		return nil, err
	}
	if err := appendReport("/players/topscorers", func() (coverage.Report, error) {
		return s.scoreTable(ctx, pair, "/players/topscorers", s.scorers.Count, s.scorers.LastUpdate)
	}); err != nil {
		return nil, err
	}
	if err := appendReport("/teams/statistics", func() (coverage.Report, error) {
		return s.scoreTable(ctx, pair, "/teams/statistics", s.stats.Count, s.stats.LastUpdate)
	}); err != nil {
		return nil, err
	}

	for _, endpoint := range detailEndpoints {
		endpoint := endpoint
		if err := appendReport(endpoint, func() (coverage.Report, error) {
			return s.scoreDetailEndpoint(ctx, pair, endpoint, finals)
		}); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

// scoreFixtures applies the full three-dimensional formula against the
// configured per-league expectation.
func (s *CoverageService) scoreFixtures(ctx context.Context, pair scope.LeagueSeason) (coverage.Report, error) {
	actual, err := s.fixtures.CountByLeagueSeason(ctx, pair.LeagueID, pair.Season)
	if err != nil {
		return coverage.Report{}, crerr.Wrap(err, "count fixtures")
	}

	var lastUpdate *time.Time
	if last, found, err := s.fixtures.LastUpdateByLeagueSeason(ctx, pair.LeagueID, pair.Season); err != nil {
		return coverage.Report{}, crerr.Wrap(err, "fixtures last update")
	} else if found {
		lastUpdate = &last
	}

	rawCalls, err := s.raw.CountSince(ctx, "/fixtures", pair.LeagueID, pair.Season, s.now().UTC().Add(-pipelineWindow))
	if err != nil {
		return coverage.Report{}, crerr.Wrap(err, "count archived fixture calls")
	}

	return buildReport(reportInput{
		Pair:       pair,
		Endpoint:   "/fixtures",
		Expected:   s.expectedFixtures[pair.LeagueID],
		Actual:     actual,
		RawCalls:   rawCalls,
		LastUpdate: lastUpdate,
		MaxLag:     s.maxLagMinutes,
		Weights:    s.weights,
		Now:        s.now().UTC(),
	}), nil
}

// scoreTable covers the endpoints whose destination is a single per-pair
// table with no configured expectation: presence plus freshness.
func (s *CoverageService) scoreTable(
	ctx context.Context,
	pair scope.LeagueSeason,
	endpoint string,
	count func(context.Context, int64, int) (int, error),
	lastUpdate func(context.Context, int64, int) (time.Time, bool, error),
) (coverage.Report, error) {
	actual, err := count(ctx, pair.LeagueID, pair.Season)
	if err != nil {
		return coverage.Report{}, crerr.Wrapf(err, "count rows for %s", endpoint)
	}

	var last *time.Time
	if value, found, err := lastUpdate(ctx, pair.LeagueID, pair.Season); err != nil {
		return coverage.Report{}, crerr.Wrapf(err, "last update for %s", endpoint)
	} else if found {
		last = &value
	}

	rawCalls, err := s.raw.CountSince(ctx, endpoint, pair.LeagueID, pair.Season, s.now().UTC().Add(-pipelineWindow))
	if err != nil {
		return coverage.Report{}, crerr.Wrapf(err, "count archived calls for %s", endpoint)
	}

	return buildReport(reportInput{
		Pair:       pair,
		Endpoint:   endpoint,
		Actual:     actual,
		RawCalls:   rawCalls,
		LastUpdate: last,
		MaxLag:     s.maxLagMinutes,
		Weights:    s.weights,
		Now:        s.now().UTC(),
	}), nil
}

// scoreDetailEndpoint measures the per-fixture endpoints against the finished
// fixtures of the window: expected is how many finished, actual is how many
// have an archived call.
func (s *CoverageService) scoreDetailEndpoint(ctx context.Context, pair scope.LeagueSeason, endpoint string, finals []int64) (coverage.Report, error) {
	covered := map[int64]struct{}{}
	if len(finals) > 0 {
		var err error
		covered, err = s.raw.FixtureIDsWithCall(ctx, endpoint, finals)
		if err != nil {
			return coverage.Report{}, crerr.Wrapf(err, "check archived calls for %s", endpoint)
		}
	}

	var lastUpdate *time.Time
	if last, found, err := s.fixtures.LastUpdateByLeagueSeason(ctx, pair.LeagueID, pair.Season); err != nil {
		return coverage.Report{}, crerr.Wrap(err, "fixtures last update")
	} else if found {
		lastUpdate = &last
	}

	return buildReport(reportInput{
		Pair:       pair,
		Endpoint:   endpoint,
		Expected:   len(finals),
		Actual:     len(covered),
		RawCalls:   len(covered),
		LastUpdate: lastUpdate,
		MaxLag:     s.maxLagFor(endpoint),
		Weights:    s.weights,
		Now:        s.now().UTC(),
	}), nil
}

// maxLagFor picks the freshness threshold: the detail endpoints move on
// live-match cadence, everything else on the daily one.
func (s *CoverageService) maxLagFor(endpoint string) int {
	for _, detail := range detailEndpoints {
		if endpoint == detail {
			return s.liveLagMinutes
		}
	}
	return s.maxLagMinutes
}

func (s *CoverageService) recentFinalsByPair(ctx context.Context) (map[scope.LeagueSeason][]int64, error) {
	now := s.now().UTC()
	finals, err := s.fixtures.ListFinalBetween(ctx, now.Add(-detailCoverageWindow), now, detailCoverageLimit)
	if err != nil {
		return nil, crerr.Wrap(err, "list finished fixtures for coverage window")
	}

	out := make(map[scope.LeagueSeason][]int64)
	for _, f := range finals {
		key := scope.LeagueSeason{LeagueID: f.LeagueID, Season: f.Season}
		out[key] = append(out[key], f.ID)
	}
	return out, nil
}

// reportInput carries one scoring request. Expected zero means unknown, never
// "expect nothing".
type reportInput struct {
	Pair       scope.LeagueSeason
	Endpoint   string
	Expected   int
	Actual     int
	RawCalls   int
	LastUpdate *time.Time
	MaxLag     int
	Weights    CoverageWeights
	Now        time.Time
}

// buildReport is the pure scoring core. Count is nil without an expectation
// and the overall weights renormalize over the remaining two dimensions.
func buildReport(in reportInput) coverage.Report {
	report := coverage.Report{
		LeagueID:      in.Pair.LeagueID,
		Season:        in.Pair.Season,
		Endpoint:      in.Endpoint,
		ExpectedCount: in.Expected,
		ActualCount:   in.Actual,
		LastUpdate:    in.LastUpdate,
		CalculatedAt:  in.Now,
	}

	report.LagMinutes = unknownLagMinutes
	if in.LastUpdate != nil {
		lag := int(in.Now.Sub(*in.LastUpdate).Minutes())
		if lag < 0 {
			lag = 0
		}
		report.LagMinutes = lag
	}

	report.FreshnessCoverage = clampScore(100 - float64(report.LagMinutes)/float64(in.MaxLag)*100)

	if in.RawCalls > 0 {
		report.PipelineCoverage = clampScore(float64(in.Actual) / float64(in.RawCalls) * 100)
	}

	if in.Expected > 0 {
		count := clampScore(float64(in.Actual) / float64(in.Expected) * 100)
		report.CountCoverage = &count
		report.OverallCoverage = in.Weights.Count*count +
			in.Weights.Freshness*report.FreshnessCoverage +
			in.Weights.Pipeline*report.PipelineCoverage
	} else {
		report.Flags = append(report.Flags, coverage.FlagNoExpectation)
		remaining := in.Weights.Freshness + in.Weights.Pipeline
		if remaining > 0 {
			report.OverallCoverage = (in.Weights.Freshness*report.FreshnessCoverage +
				in.Weights.Pipeline*report.PipelineCoverage) / remaining
		}
	}

	if report.CountCoverage != nil && *report.CountCoverage < lowCountThreshold {
		report.Flags = append(report.Flags, coverage.FlagLowCount)
	}
	if report.LagMinutes >= in.MaxLag {
		report.Flags = append(report.Flags, coverage.FlagStale)
	}
	if in.RawCalls == 0 {
		report.Flags = append(report.Flags, coverage.FlagPipelineGap)
	}
	return report
}

func clampScore(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
