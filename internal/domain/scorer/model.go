package scorer

// TopScorer is one row of a season's scorer chart. Rank is the position in
// the upstream response array, starting at 1.
type TopScorer struct {
	LeagueID   int64
	Season     int
	PlayerID   int64
	PlayerName string
	TeamID     int64
	TeamName   string
	Rank       int
	Goals      int
	Assists    int
	// RawJSON keeps the full upstream element for mart consumers that need
	// fields beyond the chart columns.
	RawJSON string
}
