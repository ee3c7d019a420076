package postgres

import (
	"database/sql"
	"time"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
)

type fixtureInsertModel struct {
	ID                     int64         `db:"id"`
	LeagueID               int64         `db:"league_id"`
	Season                 int           `db:"season"`
	Round                  *string       `db:"round"`
	HomeTeamID             int64         `db:"home_team_id"`
	AwayTeamID             int64         `db:"away_team_id"`
	VenueID                sql.NullInt64 `db:"venue_id"`
	Referee                *string       `db:"referee"`
	KickoffAt              time.Time     `db:"kickoff_at"`
	Timestamp              int64         `db:"kickoff_ts"`
	StatusShort            string        `db:"status_short"`
	StatusLong             *string       `db:"status_long"`
	Elapsed                sql.NullInt64 `db:"elapsed"`
	GoalsHome              sql.NullInt64 `db:"goals_home"`
	GoalsAway              sql.NullInt64 `db:"goals_away"`
	Score                  *string       `db:"score"`
	NeedsScoreVerification bool          `db:"needs_score_verification"`
}

func newFixtureInsertModel(item fixture.Fixture) fixtureInsertModel {
	return fixtureInsertModel{
		ID:                     item.ID,
		LeagueID:               item.LeagueID,
		Season:                 item.Season,
		Round:                  nullableString(item.Round),
		HomeTeamID:             item.HomeTeamID,
		AwayTeamID:             item.AwayTeamID,
		VenueID:                nullableInt64(item.VenueID),
		Referee:                nullableString(item.Referee),
		KickoffAt:              item.KickoffAt,
		Timestamp:              item.Timestamp,
		StatusShort:            item.StatusShort,
		StatusLong:             nullableString(item.StatusLong),
		Elapsed:                nullableInt(item.Elapsed),
		GoalsHome:              nullableInt(item.GoalsHome),
		GoalsAway:              nullableInt(item.GoalsAway),
		Score:                  nullableString(item.ScoreJSON),
		NeedsScoreVerification: item.NeedsScoreVerification,
	}
}

type fixtureTableModel struct {
	ID                     int64          `db:"id"`
	LeagueID               int64          `db:"league_id"`
	Season                 int            `db:"season"`
	Round                  sql.NullString `db:"round"`
	HomeTeamID             int64          `db:"home_team_id"`
	AwayTeamID             int64          `db:"away_team_id"`
	VenueID                sql.NullInt64  `db:"venue_id"`
	Referee                sql.NullString `db:"referee"`
	KickoffAt              time.Time      `db:"kickoff_at"`
	Timestamp              int64          `db:"kickoff_ts"`
	StatusShort            string         `db:"status_short"`
	StatusLong             sql.NullString `db:"status_long"`
	Elapsed                sql.NullInt64  `db:"elapsed"`
	GoalsHome              sql.NullInt64  `db:"goals_home"`
	GoalsAway              sql.NullInt64  `db:"goals_away"`
	Score                  sql.NullString `db:"score"`
	NeedsScoreVerification bool           `db:"needs_score_verification"`
	CreatedAt              sql.NullTime   `db:"created_at"`
	UpdatedAt              sql.NullTime   `db:"updated_at"`
}

func (m fixtureTableModel) toDomain() fixture.Fixture {
	out := fixture.Fixture{
		ID:                     m.ID,
		LeagueID:               m.LeagueID,
		Season:                 m.Season,
		Round:                  m.Round.String,
		HomeTeamID:             m.HomeTeamID,
		AwayTeamID:             m.AwayTeamID,
		VenueID:                nullInt64Ptr(m.VenueID),
		Referee:                m.Referee.String,
		KickoffAt:              m.KickoffAt,
		Timestamp:              m.Timestamp,
		StatusShort:            m.StatusShort,
		StatusLong:             m.StatusLong.String,
		Elapsed:                nullIntPtr(m.Elapsed),
		GoalsHome:              nullIntPtr(m.GoalsHome),
		GoalsAway:              nullIntPtr(m.GoalsAway),
		ScoreJSON:              m.Score.String,
		NeedsScoreVerification: m.NeedsScoreVerification,
	}
	if m.UpdatedAt.Valid {
		out.UpdatedAt = m.UpdatedAt.Time
	}
	return out
}

type fixtureDetailsInsertModel struct {
	FixtureID  int64   `db:"fixture_id"`
	Events     *string `db:"events"`
	Lineups    *string `db:"lineups"`
	Statistics *string `db:"statistics"`
	Players    *string `db:"players"`
}

type fixtureEventInsertModel struct {
	FixtureID  int64         `db:"fixture_id"`
	EventKey   string        `db:"event_key"`
	Elapsed    int           `db:"elapsed"`
	Extra      sql.NullInt64 `db:"extra"`
	TeamID     int64         `db:"team_id"`
	PlayerID   sql.NullInt64 `db:"player_id"`
	PlayerName *string       `db:"player_name"`
	AssistID   sql.NullInt64 `db:"assist_id"`
	AssistName *string       `db:"assist_name"`
	Type       string        `db:"type"`
	Detail     *string       `db:"detail"`
	Comments   *string       `db:"comments"`
}

type fixturePlayerInsertModel struct {
	FixtureID  int64   `db:"fixture_id"`
	TeamID     int64   `db:"team_id"`
	PlayerID   int64   `db:"player_id"`
	PlayerName *string `db:"player_name"`
	Stats      string  `db:"stats"`
}

type fixtureTeamStatInsertModel struct {
	FixtureID int64  `db:"fixture_id"`
	TeamID    int64  `db:"team_id"`
	Stats     string `db:"stats"`
}

type fixtureLineupInsertModel struct {
	FixtureID   int64         `db:"fixture_id"`
	TeamID      int64         `db:"team_id"`
	Formation   *string       `db:"formation"`
	CoachID     sql.NullInt64 `db:"coach_id"`
	CoachName   *string       `db:"coach_name"`
	StartXI     *string       `db:"start_xi"`
	Substitutes *string       `db:"substitutes"`
}
