package teamstats

// SeasonStats is one team's aggregated season statistics for a league. The
// upstream document is deeply nested and consumer needs vary, so the full
// blob is kept alongside the few promoted columns.
type SeasonStats struct {
	LeagueID int64
	Season   int
	TeamID   int64
	Form     string
	Played   int
	Wins     int
	Draws    int
	Loses    int
	RawJSON  string
}
