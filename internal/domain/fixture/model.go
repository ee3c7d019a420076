package fixture

import (
	"sort"
	"time"
)

// Upstream short status codes, grouped by lifecycle phase.
var (
	liveStatuses = map[string]struct{}{
		"1H": {}, "HT": {}, "2H": {}, "ET": {}, "BT": {}, "P": {}, "SUSP": {}, "INT": {}, "LIVE": {},
	}
	finalStatuses = map[string]struct{}{
		"FT": {}, "AET": {}, "PEN": {},
	}
	scheduledStatuses = map[string]struct{}{
		"NS": {}, "TBD": {},
	}
)

func IsLiveStatus(short string) bool {
	_, ok := liveStatuses[short]
	return ok
}

func IsFinalStatus(short string) bool {
	_, ok := finalStatuses[short]
	return ok
}

func IsScheduledStatus(short string) bool {
	_, ok := scheduledStatuses[short]
	return ok
}

func LiveStatusList() []string      { return statusList(liveStatuses) }
func FinalStatusList() []string     { return statusList(finalStatuses) }
func ScheduledStatusList() []string { return statusList(scheduledStatuses) }

func statusList(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for status := range set {
		out = append(out, status)
	}
	sort.Strings(out)
	return out
}

// Fixture is the normalized core row for one match. Kickoff is stored in UTC
// regardless of the timezone the upstream payload was expressed in.
type Fixture struct {
	ID         int64
	LeagueID   int64
	Season     int
	Round      string
	HomeTeamID int64
	AwayTeamID int64
	VenueID    *int64
	Referee    string
	KickoffAt  time.Time
	Timestamp  int64

	StatusShort string
	StatusLong  string
	Elapsed     *int

	GoalsHome *int
	GoalsAway *int
	// ScoreJSON keeps the full halftime/fulltime/extratime/penalty block.
	ScoreJSON string

	// NeedsScoreVerification marks rows force-finished by the watchdog with
	// a missing or suspect score.
	NeedsScoreVerification bool

	UpdatedAt time.Time
}

func (f Fixture) IsLive() bool      { return IsLiveStatus(f.StatusShort) }
func (f Fixture) IsFinal() bool     { return IsFinalStatus(f.StatusShort) }
func (f Fixture) IsScheduled() bool { return IsScheduledStatus(f.StatusShort) }

// Details carries the per-fixture JSON payload columns. Empty strings mean
// the section was absent from the envelope.
type Details struct {
	FixtureID      int64
	EventsJSON     string
	LineupsJSON    string
	StatisticsJSON string
	PlayersJSON    string
}

// HasAny reports whether at least one section is populated; detail rows with
// no sections are not written.
func (d Details) HasAny() bool {
	return d.EventsJSON != "" || d.LineupsJSON != "" || d.StatisticsJSON != "" || d.PlayersJSON != ""
}

// Event is a single in-match occurrence. EventKey is the deterministic
// identity hash; the upstream feed carries no event ids.
type Event struct {
	FixtureID  int64
	EventKey   string
	Elapsed    int
	Extra      *int
	TeamID     int64
	PlayerID   *int64
	PlayerName string
	AssistID   *int64
	AssistName string
	Type       string
	Detail     string
	Comments   string
}

// PlayerStat is one player's per-fixture statistics blob. PlayerID is
// negative for synthetic ids minted when the feed omits the real one.
type PlayerStat struct {
	FixtureID  int64
	TeamID     int64
	PlayerID   int64
	PlayerName string
	StatsJSON  string
}

// TeamStat is one team's per-fixture statistics blob.
type TeamStat struct {
	FixtureID int64
	TeamID    int64
	StatsJSON string
}

// Lineup is one team's sheet for a fixture.
type Lineup struct {
	FixtureID       int64
	TeamID          int64
	Formation       string
	CoachID         *int64
	CoachName       string
	StartXIJSON     string
	SubstitutesJSON string
}
