package transform

import (
	crerr "github.com/cockroachdb/errors"

	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/teamstats"
)

type seasonStatsPayload struct {
	League struct {
		ID     int64 `json:"id"`
		Season int   `json:"season"`
	} `json:"league"`
	Team struct {
		ID int64 `json:"id"`
	} `json:"team"`
	Form     string `json:"form"`
	Fixtures struct {
		Played struct {
			Total int `json:"total"`
		} `json:"played"`
		Wins struct {
			Total int `json:"total"`
		} `json:"wins"`
		Draws struct {
			Total int `json:"total"`
		} `json:"draws"`
		Loses struct {
			Total int `json:"total"`
		} `json:"loses"`
	} `json:"fixtures"`
}

// SeasonStats normalizes a /teams/statistics envelope. Unlike the other
// endpoints, response is a single object, not a list; the whole document is
// kept as the raw blob with form and totals promoted to columns.
func SeasonStats(body []byte) (teamstats.SeasonStats, error) {
	var payload seasonStatsPayload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return teamstats.SeasonStats{}, crerr.Wrap(err, "decode team statistics")
	}
	if payload.Team.ID == 0 || payload.League.ID == 0 {
		return teamstats.SeasonStats{}, crerr.New("team statistics payload missing identifiers")
	}

	return teamstats.SeasonStats{
		LeagueID: payload.League.ID,
		Season:   payload.League.Season,
		TeamID:   payload.Team.ID,
		Form:     payload.Form,
		Played:   payload.Fixtures.Played.Total,
		Wins:     payload.Fixtures.Wins.Total,
		Draws:    payload.Fixtures.Draws.Total,
		Loses:    payload.Fixtures.Loses.Total,
		RawJSON:  string(body),
	}, nil
}
