package standing

import "time"

// Row is one team's position inside one group of a league table. Cup
// competitions can carry several groups per season.
type Row struct {
	LeagueID    int64
	Season      int
	GroupName   string
	TeamID      int64
	TeamName    string
	Rank        int
	Points      int
	GoalsDiff   int
	Form        string
	Status      string
	Description string

	Played       int
	Win          int
	Draw         int
	Lose         int
	GoalsFor     int
	GoalsAgainst int

	UpdatedAtAPI *time.Time
}
