package transform

import (
	"strconv"

	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/injury"
)

type injuryPayload struct {
	Player struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Type     string `json:"type"`
		Reason   string `json:"reason"`
		Severity string `json:"severity"`
	} `json:"player"`
	Team struct {
		ID int64 `json:"id"`
	} `json:"team"`
	Fixture struct {
		ID   *int64 `json:"id"`
		Date string `json:"date"`
	} `json:"fixture"`
	League struct {
		ID     int64 `json:"id"`
		Season int   `json:"season"`
	} `json:"league"`
}

// Injuries normalizes an /injuries envelope. The feed has no report id, so
// identity is a hash over league, season, team, player, date, type, reason
// and severity.
func Injuries(items []apifootball.RawItem) ([]injury.Injury, int) {
	rows := make([]injury.Injury, 0, len(items))
	skipped := 0

	for _, item := range items {
		var payload injuryPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Player.ID == 0 {
			skipped++
			continue
		}

		row := injury.Injury{
			LeagueID:   payload.League.ID,
			Season:     payload.League.Season,
			TeamID:     payload.Team.ID,
			PlayerID:   payload.Player.ID,
			PlayerName: payload.Player.Name,
			FixtureID:  payload.Fixture.ID,
			Type:       payload.Player.Type,
			Reason:     payload.Player.Reason,
		}

		dateText := ""
		if parsed, ok := ParseDatetime(payload.Fixture.Date); ok {
			utc := parsed.UTC()
			row.Date = &utc
			dateText = utc.Format(utcLayout)
		}

		row.InjuryKey = hashKey(
			strconv.FormatInt(payload.League.ID, 10),
			strconv.Itoa(payload.League.Season),
			strconv.FormatInt(payload.Team.ID, 10),
			strconv.FormatInt(payload.Player.ID, 10),
			dateText,
			payload.Player.Type,
			payload.Player.Reason,
			payload.Player.Severity,
		)

		rows = append(rows, row)
	}
	return rows, skipped
}
