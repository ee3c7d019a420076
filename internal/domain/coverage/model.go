package coverage

import "time"

// Flags raised by the calculator when a dimension crosses its threshold.
const (
	FlagLowCount     = "LOW_COUNT"
	FlagStale        = "STALE"
	FlagPipelineGap  = "PIPELINE_GAP"
	FlagNoExpectation = "NO_EXPECTATION"
)

// Report is one (league, season, endpoint) coverage snapshot written to the
// mart tier. Nil CountCoverage means no expectation could be derived and the
// dimension was renormalized away.
type Report struct {
	LeagueID int64
	Season   int
	Endpoint string

	ExpectedCount int
	ActualCount   int

	CountCoverage     *float64
	FreshnessCoverage float64
	PipelineCoverage  float64
	OverallCoverage   float64

	LastUpdate *time.Time
	LagMinutes int

	Flags        []string
	CalculatedAt time.Time
}
