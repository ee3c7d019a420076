package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/coverage"
	"github.com/blkn1/API-Football-Collector-sub000/internal/scope"
)

var testWeights = CoverageWeights{Count: 0.5, Freshness: 0.3, Pipeline: 0.2}

func baseInput(now time.Time) reportInput {
	lastUpdate := now.Add(-60 * time.Minute)
	return reportInput{
		Pair:       scope.LeagueSeason{LeagueID: 39, Season: 2026},
		Endpoint:   "/fixtures",
		Expected:   380,
		Actual:     380,
		RawCalls:   400,
		LastUpdate: &lastUpdate,
		MaxLag:     1440,
		Weights:    testWeights,
		Now:        now,
	}
}

func TestMaxLagForSplitsDailyAndLiveCadence(t *testing.T) {
	service := NewCoverageService(nil, nil, nil, nil, nil, nil, nil, nil,
		1440, 30, testWeights, nil)

	require.Equal(t, 1440, service.maxLagFor("/fixtures"))
	require.Equal(t, 1440, service.maxLagFor("/injuries"))
	for _, endpoint := range detailEndpoints {
		require.Equal(t, 30, service.maxLagFor(endpoint))
	}
}

func TestBuildReportFullDimensions(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	report := buildReport(baseInput(now))

	require.NotNil(t, report.CountCoverage)
	require.InDelta(t, 100.0, *report.CountCoverage, 0.001)
	require.Equal(t, 60, report.LagMinutes)
	// 100 − 60/1440×100 = 95.83…
	require.InDelta(t, 95.833, report.FreshnessCoverage, 0.01)
	require.InDelta(t, 95.0, report.PipelineCoverage, 0.001)

	expected := 0.5*100 + 0.3*report.FreshnessCoverage + 0.2*report.PipelineCoverage
	require.InDelta(t, expected, report.OverallCoverage, 0.001)
	require.Empty(t, report.Flags)
}

func TestBuildReportUnknownExpectedRenormalizes(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	in := baseInput(now)
	in.Expected = 0

	report := buildReport(in)

	require.Nil(t, report.CountCoverage)
	require.Contains(t, report.Flags, coverage.FlagNoExpectation)

	// count weight redistributed over freshness and pipeline
	expected := (0.3*report.FreshnessCoverage + 0.2*report.PipelineCoverage) / 0.5
	require.InDelta(t, expected, report.OverallCoverage, 0.001)
}

func TestBuildReportNeverWrittenPair(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	in := baseInput(now)
	in.Actual = 0
	in.RawCalls = 0
	in.LastUpdate = nil

	report := buildReport(in)

	require.Equal(t, unknownLagMinutes, report.LagMinutes)
	require.Zero(t, report.FreshnessCoverage)
	require.Zero(t, report.PipelineCoverage)
	require.NotNil(t, report.CountCoverage)
	require.Zero(t, *report.CountCoverage)
	require.Zero(t, report.OverallCoverage)

	require.Contains(t, report.Flags, coverage.FlagLowCount)
	require.Contains(t, report.Flags, coverage.FlagStale)
	require.Contains(t, report.Flags, coverage.FlagPipelineGap)
}

func TestBuildReportLowCountFlag(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	in := baseInput(now)
	in.Actual = 100 // 26.3% of 380

	report := buildReport(in)
	require.NotNil(t, report.CountCoverage)
	require.Less(t, *report.CountCoverage, lowCountThreshold)
	require.Contains(t, report.Flags, coverage.FlagLowCount)
}

func TestBuildReportClampsScores(t *testing.T) {
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	in := baseInput(now)
	in.Actual = 380
	in.RawCalls = 2 // 380 rows from 2 calls would naively score 19000

	report := buildReport(in)
	require.InDelta(t, 100.0, report.PipelineCoverage, 0.001)

	in.LastUpdate = &now
	report = buildReport(in)
	require.InDelta(t, 100.0, report.FreshnessCoverage, 0.001)
}
