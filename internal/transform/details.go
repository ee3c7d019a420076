package transform

import (
	"strconv"

	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
)

type eventPayload struct {
	Time struct {
		Elapsed int  `json:"elapsed"`
		Extra   *int `json:"extra"`
	} `json:"time"`
	Team struct {
		ID int64 `json:"id"`
	} `json:"team"`
	Player struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
	Assist struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	} `json:"assist"`
	Type     string `json:"type"`
	Detail   string `json:"detail"`
	Comments string `json:"comments"`
}

// Events normalizes a /fixtures/events envelope. The feed carries no event
// ids, so identity is a content hash over every field plus the item's
// ordinal; the ordinal keeps genuinely duplicate events distinct.
func Events(fixtureID int64, items []apifootball.RawItem) ([]fixture.Event, int) {
	rows := make([]fixture.Event, 0, len(items))
	skipped := 0

	for ordinal, item := range items {
		var payload eventPayload
		if err := sonic.Unmarshal(item, &payload); err != nil {
			skipped++
			continue
		}

		key := hashKey(
			strconv.FormatInt(fixtureID, 10),
			strconv.Itoa(payload.Time.Elapsed),
			formatOptInt(payload.Time.Extra),
			strconv.FormatInt(payload.Team.ID, 10),
			formatOptInt64(payload.Player.ID),
			formatOptInt64(payload.Assist.ID),
			payload.Type,
			payload.Detail,
			payload.Comments,
			strconv.Itoa(ordinal),
		)

		rows = append(rows, fixture.Event{
			FixtureID:  fixtureID,
			EventKey:   key,
			Elapsed:    payload.Time.Elapsed,
			Extra:      payload.Time.Extra,
			TeamID:     payload.Team.ID,
			PlayerID:   payload.Player.ID,
			PlayerName: payload.Player.Name,
			AssistID:   payload.Assist.ID,
			AssistName: payload.Assist.Name,
			Type:       payload.Type,
			Detail:     payload.Detail,
			Comments:   payload.Comments,
		})
	}
	return rows, skipped
}

type playersPayload struct {
	Team struct {
		ID int64 `json:"id"`
	} `json:"team"`
	Players []struct {
		Player struct {
			ID   *int64 `json:"id"`
			Name string `json:"name"`
		} `json:"player"`
		Statistics []map[string]any `json:"statistics"`
	} `json:"players"`
}

// PlayerStats normalizes a /fixtures/players envelope (one item per team).
// Players without an id get a deterministic negative synthetic one, so a
// single envelope never yields duplicate (fixture, team, player) triples.
func PlayerStats(fixtureID int64, items []apifootball.RawItem) ([]fixture.PlayerStat, int) {
	var rows []fixture.PlayerStat
	skipped := 0

	for _, item := range items {
		var payload playersPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Team.ID == 0 {
			skipped++
			continue
		}

		for ordinal, entry := range payload.Players {
			playerID := int64(0)
			if entry.Player.ID != nil {
				playerID = *entry.Player.ID
			}
			if playerID == 0 {
				playerID = syntheticPlayerID(fixtureID, payload.Team.ID, entry.Player.Name, ordinal)
			}

			stats, err := sonic.Marshal(entry.Statistics)
			if err != nil {
				skipped++
				continue
			}

			rows = append(rows, fixture.PlayerStat{
				FixtureID:  fixtureID,
				TeamID:     payload.Team.ID,
				PlayerID:   playerID,
				PlayerName: entry.Player.Name,
				StatsJSON:  string(stats),
			})
		}
	}
	return rows, skipped
}

type teamStatPayload struct {
	Team struct {
		ID int64 `json:"id"`
	} `json:"team"`
	Statistics []map[string]any `json:"statistics"`
}

// TeamStats normalizes a /fixtures/statistics envelope (one item per team).
func TeamStats(fixtureID int64, items []apifootball.RawItem) ([]fixture.TeamStat, int) {
	rows := make([]fixture.TeamStat, 0, len(items))
	skipped := 0

	for _, item := range items {
		var payload teamStatPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Team.ID == 0 {
			skipped++
			continue
		}
		stats, err := sonic.Marshal(payload.Statistics)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, fixture.TeamStat{
			FixtureID: fixtureID,
			TeamID:    payload.Team.ID,
			StatsJSON: string(stats),
		})
	}
	return rows, skipped
}

type lineupPayload struct {
	Team struct {
		ID int64 `json:"id"`
	} `json:"team"`
	Formation string `json:"formation"`
	Coach     struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	} `json:"coach"`
	StartXI     []map[string]any `json:"startXI"`
	Substitutes []map[string]any `json:"substitutes"`
}

// Lineups normalizes a /fixtures/lineups envelope (one item per team).
func Lineups(fixtureID int64, items []apifootball.RawItem) ([]fixture.Lineup, int) {
	rows := make([]fixture.Lineup, 0, len(items))
	skipped := 0

	for _, item := range items {
		var payload lineupPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Team.ID == 0 {
			skipped++
			continue
		}

		startXI, err := sonic.Marshal(payload.StartXI)
		if err != nil {
			skipped++
			continue
		}
		subs, err := sonic.Marshal(payload.Substitutes)
		if err != nil {
			skipped++
			continue
		}

		rows = append(rows, fixture.Lineup{
			FixtureID:       fixtureID,
			TeamID:          payload.Team.ID,
			Formation:       payload.Formation,
			CoachID:         payload.Coach.ID,
			CoachName:       payload.Coach.Name,
			StartXIJSON:     string(startXI),
			SubstitutesJSON: string(subs),
		})
	}
	return rows, skipped
}
