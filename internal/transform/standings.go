package transform

import (
	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/standing"
)

type standingsPayload struct {
	League struct {
		ID        int64                `json:"id"`
		Season    int                  `json:"season"`
		Standings [][]standingsElement `json:"standings"`
	} `json:"league"`
}

type standingsElement struct {
	Rank int `json:"rank"`
	Team struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"team"`
	Points      int    `json:"points"`
	GoalsDiff   int    `json:"goalsDiff"`
	Group       string `json:"group"`
	Form        string `json:"form"`
	Status      string `json:"status"`
	Description string `json:"description"`
	All         struct {
		Played int `json:"played"`
		Win    int `json:"win"`
		Draw   int `json:"draw"`
		Lose   int `json:"lose"`
		Goals  struct {
			For     int `json:"for"`
			Against int `json:"against"`
		} `json:"goals"`
	} `json:"all"`
	Update string `json:"update"`
}

// Standings flattens a /standings envelope into table rows. The upstream
// nests groups as response[0].league.standings[][]; cups can carry several
// groups, each emitted with its group name.
func Standings(items []apifootball.RawItem) ([]standing.Row, int) {
	var rows []standing.Row
	skipped := 0

	for _, item := range items {
		var payload standingsPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.League.ID == 0 {
			skipped++
			continue
		}

		for _, group := range payload.League.Standings {
			for _, el := range group {
				row := standing.Row{
					LeagueID:     payload.League.ID,
					Season:       payload.League.Season,
					GroupName:    el.Group,
					TeamID:       el.Team.ID,
					TeamName:     el.Team.Name,
					Rank:         el.Rank,
					Points:       el.Points,
					GoalsDiff:    el.GoalsDiff,
					Form:         el.Form,
					Status:       el.Status,
					Description:  el.Description,
					Played:       el.All.Played,
					Win:          el.All.Win,
					Draw:         el.All.Draw,
					Lose:         el.All.Lose,
					GoalsFor:     el.All.Goals.For,
					GoalsAgainst: el.All.Goals.Against,
				}
				if updated, ok := ParseDatetime(el.Update); ok {
					utc := updated.UTC()
					row.UpdatedAtAPI = &utc
				}
				rows = append(rows, row)
			}
		}
	}
	return rows, skipped
}
