package transform

import (
	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/scorer"
)

type scorerPayload struct {
	Player struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
	Statistics []struct {
		Team struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"team"`
		Goals struct {
			Total   *int `json:"total"`
			Assists *int `json:"assists"`
		} `json:"goals"`
	} `json:"statistics"`
}

// TopScorers normalizes a /players/topscorers envelope. Rank is the 1-based
// position in the response array; team and goal counts come from the first
// statistics entry.
func TopScorers(leagueID int64, season int, items []apifootball.RawItem) ([]scorer.TopScorer, int) {
	rows := make([]scorer.TopScorer, 0, len(items))
	skipped := 0

	for i, item := range items {
		var payload scorerPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Player.ID == 0 || len(payload.Statistics) == 0 {
			skipped++
			continue
		}
		stat := payload.Statistics[0]

		row := scorer.TopScorer{
			LeagueID:   leagueID,
			Season:     season,
			PlayerID:   payload.Player.ID,
			PlayerName: payload.Player.Name,
			TeamID:     stat.Team.ID,
			TeamName:   stat.Team.Name,
			Rank:       i + 1,
			RawJSON:    string(item),
		}
		if stat.Goals.Total != nil {
			row.Goals = *stat.Goals.Total
		}
		if stat.Goals.Assists != nil {
			row.Assists = *stat.Goals.Assists
		}
		rows = append(rows, row)
	}
	return rows, skipped
}
