package progress

import "time"

// Backfill is a per-(job, league, season) page cursor for resumable paging
// work. NextPage is the first page not yet fetched.
type Backfill struct {
	JobID     string
	LeagueID  int64
	Season    int
	NextPage  int
	Completed bool
	LastError string
	UpdatedAt time.Time
}

// TeamBootstrap marks whether the team roster call for (league, season) has
// succeeded at least once. Fixture ingestion is gated on it.
type TeamBootstrap struct {
	LeagueID  int64
	Season    int
	Completed bool
	LastError string
	UpdatedAt time.Time
}

// TeamStatsCursor is the per-team fetch timestamp driving the distributed
// season-statistics refresh.
type TeamStatsCursor struct {
	LeagueID      int64
	Season        int
	TeamID        int64
	LastFetchedAt *time.Time
}

// RoundRobin is the rotating position of a job that walks the tracked-league
// list a few entries per tick. Lap counts completed full passes.
type RoundRobin struct {
	JobID    string
	Position int
	Lap      int
}
