package transform

import (
	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/reference"
)

type leaguePayload struct {
	League struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
		Logo string `json:"logo"`
	} `json:"league"`
	Country struct {
		Name string `json:"name"`
		Code string `json:"code"`
		Flag string `json:"flag"`
	} `json:"country"`
	Seasons []league.Season `json:"seasons"`
}

// Leagues normalizes a /leagues envelope. A non-empty tracked set filters
// the output to those ids; an empty set keeps everything.
func Leagues(items []apifootball.RawItem, tracked map[int64]struct{}) ([]league.League, int) {
	rows := make([]league.League, 0, len(items))
	skipped := 0

	for _, item := range items {
		var payload leaguePayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.League.ID == 0 {
			skipped++
			continue
		}
		if len(tracked) > 0 {
			if _, ok := tracked[payload.League.ID]; !ok {
				continue
			}
		}
		rows = append(rows, league.League{
			ID:          payload.League.ID,
			Name:        payload.League.Name,
			Type:        payload.League.Type,
			Logo:        payload.League.Logo,
			CountryName: payload.Country.Name,
			CountryCode: payload.Country.Code,
			CountryFlag: payload.Country.Flag,
			Seasons:     payload.Seasons,
		})
	}
	return rows, skipped
}

type countryPayload struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Flag string `json:"flag"`
}

func Countries(items []apifootball.RawItem) ([]reference.Country, int) {
	rows := make([]reference.Country, 0, len(items))
	skipped := 0
	for _, item := range items {
		var payload countryPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Name == "" {
			skipped++
			continue
		}
		rows = append(rows, reference.Country{Code: payload.Code, Name: payload.Name, Flag: payload.Flag})
	}
	return rows, skipped
}

// Timezones normalizes a /timezone envelope; items are bare strings.
func Timezones(items []apifootball.RawItem) ([]reference.Timezone, int) {
	rows := make([]reference.Timezone, 0, len(items))
	skipped := 0
	for _, item := range items {
		var name string
		if err := sonic.Unmarshal(item, &name); err != nil || name == "" {
			skipped++
			continue
		}
		rows = append(rows, reference.Timezone{Name: name})
	}
	return rows, skipped
}
