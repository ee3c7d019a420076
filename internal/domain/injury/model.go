package injury

import "time"

// Injury is one report from the injuries feed. The feed carries no report
// id, so InjuryKey is a deterministic hash over the identifying fields.
type Injury struct {
	InjuryKey  string
	LeagueID   int64
	Season     int
	TeamID     int64
	PlayerID   int64
	PlayerName string
	FixtureID  *int64
	Type       string
	Reason     string
	Date       *time.Time
}
