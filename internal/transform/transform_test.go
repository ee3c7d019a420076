package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
)

func rawItems(items ...string) []apifootball.RawItem {
	out := make([]apifootball.RawItem, 0, len(items))
	for _, item := range items {
		out = append(out, apifootball.RawItem(item))
	}
	return out
}

const fixtureItem = `{
	"fixture": {
		"id": 1035042,
		"referee": "A. Taylor",
		"timezone": "Europe/London",
		"date": "2024-08-17T16:30:00+01:00",
		"timestamp": 1723908600,
		"venue": {"id": 556, "name": "Old Trafford", "city": "Manchester"},
		"status": {"long": "Second Half", "short": "2H", "elapsed": 67}
	},
	"league": {"id": 39, "name": "Premier League", "season": 2024, "round": "Regular Season - 1"},
	"teams": {"home": {"id": 33, "name": "Manchester United"}, "away": {"id": 40, "name": "Liverpool"}},
	"goals": {"home": 1, "away": 0},
	"score": {"halftime": {"home": 1, "away": 0}, "fulltime": {"home": null, "away": null}},
	"events": [{"time": {"elapsed": 23}, "team": {"id": 33}, "player": {"id": 909, "name": "M. Rashford"}, "type": "Goal", "detail": "Normal Goal"}]
}`

func TestFixtures_NormalizesKickoffToUTC(t *testing.T) {
	out := Fixtures(rawItems(fixtureItem))
	require.Zero(t, out.Skipped)
	require.Len(t, out.Fixtures, 1)

	f := out.Fixtures[0]
	require.Equal(t, int64(1035042), f.ID)
	require.Equal(t, time.Date(2024, 8, 17, 15, 30, 0, 0, time.UTC), f.KickoffAt)
	require.Equal(t, "2H", f.StatusShort)
	require.NotNil(t, f.VenueID)
	require.Equal(t, int64(556), *f.VenueID)
	require.Equal(t, 1, *f.GoalsHome)
}

func TestFixtures_VenueZeroBecomesNull(t *testing.T) {
	item := `{"fixture":{"id":7,"date":"2024-08-17T15:30:00+00:00","venue":{"id":0},"status":{"short":"NS"}},"league":{"id":39,"season":2024},"teams":{"home":{"id":1},"away":{"id":2}},"goals":{}}`
	out := Fixtures(rawItems(item))
	require.Len(t, out.Fixtures, 1)
	require.Nil(t, out.Fixtures[0].VenueID)
	require.Empty(t, out.Venues)
}

func TestFixtures_EmitsDetailsOnlyWhenSectionsPresent(t *testing.T) {
	bare := `{"fixture":{"id":8,"date":"2024-08-17T15:30:00+00:00","status":{"short":"NS"}},"league":{"id":39,"season":2024},"teams":{"home":{"id":1},"away":{"id":2}},"goals":{}}`
	out := Fixtures(rawItems(fixtureItem, bare))
	require.Len(t, out.Fixtures, 2)
	require.Len(t, out.Details, 1)
	require.Equal(t, int64(1035042), out.Details[0].FixtureID)
	require.NotEmpty(t, out.Details[0].EventsJSON)
	require.Empty(t, out.Details[0].LineupsJSON)
}

func TestFixtures_SkipsMalformedItemKeepsBatch(t *testing.T) {
	out := Fixtures(rawItems(`not json`, fixtureItem))
	require.Equal(t, 1, out.Skipped)
	require.Len(t, out.Fixtures, 1)
}

func TestGroupFixtures(t *testing.T) {
	other := `{"fixture":{"id":9,"date":"2024-08-17T15:30:00+00:00","status":{"short":"NS"}},"league":{"id":140,"season":2024},"teams":{"home":{"id":1},"away":{"id":2}},"goals":{}}`
	groups := GroupFixtures(Fixtures(rawItems(fixtureItem, other)))
	require.Len(t, groups, 2)
	require.Len(t, groups[LeagueSeason{LeagueID: 39, Season: 2024}].Fixtures, 1)
	require.Len(t, groups[LeagueSeason{LeagueID: 140, Season: 2024}].Fixtures, 1)
}

func TestNormalizeDatetimes(t *testing.T) {
	doc := map[string]any{
		"date":   "2024-08-17T16:30:00+01:00",
		"naive":  "2024-08-17T16:30:00",
		"zulu":   "2024-08-17T15:30:00Z",
		"plain":  "Regular Season - 1",
		"nested": []any{map[string]any{"update": "2024-08-17 10:00:00"}},
	}
	out := NormalizeDatetimes(doc).(map[string]any)
	require.Equal(t, "2024-08-17T15:30:00+00:00", out["date"])
	require.Equal(t, "2024-08-17T16:30:00+00:00", out["naive"])
	require.Equal(t, "2024-08-17T15:30:00+00:00", out["zulu"])
	require.Equal(t, "Regular Season - 1", out["plain"])
	nested := out["nested"].([]any)[0].(map[string]any)
	require.Equal(t, "2024-08-17T10:00:00+00:00", nested["update"])
}

func TestEvents_OrdinalKeepsDuplicatesDistinct(t *testing.T) {
	item := `{"time":{"elapsed":45},"team":{"id":33},"player":{"id":909,"name":"M. Rashford"},"type":"Card","detail":"Yellow Card"}`
	rows, skipped := Events(1035042, rawItems(item, item))
	require.Zero(t, skipped)
	require.Len(t, rows, 2)
	require.NotEqual(t, rows[0].EventKey, rows[1].EventKey)

	again, _ := Events(1035042, rawItems(item, item))
	require.Equal(t, rows[0].EventKey, again[0].EventKey)
	require.Equal(t, rows[1].EventKey, again[1].EventKey)
}

func TestPlayerStats_SyntheticIDsAreDeterministicAndUnique(t *testing.T) {
	item := `{"team":{"id":33},"players":[
		{"player":{"id":null,"name":"Trialist A"},"statistics":[{"games":{"minutes":12}}]},
		{"player":{"id":0,"name":"Trialist B"},"statistics":[{"games":{"minutes":3}}]},
		{"player":{"id":909,"name":"M. Rashford"},"statistics":[{"games":{"minutes":90}}]}
	]}`
	rows, skipped := PlayerStats(1035042, rawItems(item))
	require.Zero(t, skipped)
	require.Len(t, rows, 3)

	require.Negative(t, rows[0].PlayerID)
	require.Negative(t, rows[1].PlayerID)
	require.NotEqual(t, rows[0].PlayerID, rows[1].PlayerID)
	require.Equal(t, int64(909), rows[2].PlayerID)

	again, _ := PlayerStats(1035042, rawItems(item))
	require.Equal(t, rows[0].PlayerID, again[0].PlayerID)
	require.Equal(t, rows[1].PlayerID, again[1].PlayerID)
}

func TestStandings_WalksNestedGroups(t *testing.T) {
	item := `{"league":{"id":39,"season":2024,"standings":[[
		{"rank":1,"team":{"id":40,"name":"Liverpool"},"points":9,"goalsDiff":7,"group":"Premier League","form":"WWW",
		 "all":{"played":3,"win":3,"draw":0,"lose":0,"goals":{"for":9,"against":2}},"update":"2024-09-01T00:00:00+00:00"},
		{"rank":2,"team":{"id":33,"name":"Manchester United"},"points":6,"goalsDiff":2,"group":"Premier League","form":"WWL",
		 "all":{"played":3,"win":2,"draw":0,"lose":1,"goals":{"for":5,"against":3}},"update":"2024-09-01T00:00:00+00:00"}
	]]}}`
	rows, skipped := Standings(rawItems(item))
	require.Zero(t, skipped)
	require.Len(t, rows, 2)
	require.Equal(t, int64(40), rows[0].TeamID)
	require.Equal(t, 9, rows[0].GoalsFor)
	require.Equal(t, 2, rows[0].GoalsAgainst)
	require.Equal(t, 1, rows[0].Rank)
	require.NotNil(t, rows[0].UpdatedAtAPI)
}

func TestInjuries_KeyIsStable(t *testing.T) {
	item := `{"player":{"id":909,"name":"M. Rashford","type":"Missing Fixture","reason":"Knock"},
		"team":{"id":33},"fixture":{"id":1035050,"date":"2024-08-24T15:00:00+00:00"},
		"league":{"id":39,"season":2024}}`
	first, skipped := Injuries(rawItems(item))
	require.Zero(t, skipped)
	require.Len(t, first, 1)
	require.NotEmpty(t, first[0].InjuryKey)

	second, _ := Injuries(rawItems(item))
	require.Equal(t, first[0].InjuryKey, second[0].InjuryKey)
}

func TestInjuries_SeverityChangesKey(t *testing.T) {
	base := `{"player":{"id":909,"name":"M. Rashford","type":"Missing Fixture","reason":"Knock"},
		"team":{"id":33},"fixture":{"id":1035050,"date":"2024-08-24T15:00:00+00:00"},
		"league":{"id":39,"season":2024}}`
	severe := `{"player":{"id":909,"name":"M. Rashford","type":"Missing Fixture","reason":"Knock","severity":"doubtful"},
		"team":{"id":33},"fixture":{"id":1035050,"date":"2024-08-24T15:00:00+00:00"},
		"league":{"id":39,"season":2024}}`

	rows, skipped := Injuries(rawItems(base, severe))
	require.Zero(t, skipped)
	require.Len(t, rows, 2)
	require.NotEqual(t, rows[0].InjuryKey, rows[1].InjuryKey)
}

func TestTopScorers_RankIsResponsePosition(t *testing.T) {
	a := `{"player":{"id":1100,"name":"E. Haaland"},"statistics":[{"team":{"id":50,"name":"Manchester City"},"goals":{"total":27,"assists":5}}]}`
	b := `{"player":{"id":909,"name":"M. Rashford"},"statistics":[{"team":{"id":33,"name":"Manchester United"},"goals":{"total":17,"assists":3}}]}`
	rows, skipped := TopScorers(39, 2024, rawItems(a, b))
	require.Zero(t, skipped)
	require.Len(t, rows, 2)
	require.Equal(t, 1, rows[0].Rank)
	require.Equal(t, 27, rows[0].Goals)
	require.Equal(t, 2, rows[1].Rank)
	require.Equal(t, int64(33), rows[1].TeamID)
}

func TestSeasonStats_KeepsRawBlob(t *testing.T) {
	body := []byte(`{"league":{"id":39,"season":2024},"team":{"id":33},"form":"WWLDW",
		"fixtures":{"played":{"total":20},"wins":{"total":11},"draws":{"total":4},"loses":{"total":5}}}`)
	stats, err := SeasonStats(body)
	require.NoError(t, err)
	require.Equal(t, "WWLDW", stats.Form)
	require.Equal(t, 20, stats.Played)
	require.JSONEq(t, string(body), stats.RawJSON)

	_, err = SeasonStats([]byte(`{"league":{},"team":{}}`))
	require.Error(t, err)
}

func TestTeams_VenuesComeOutDeduplicated(t *testing.T) {
	a := `{"team":{"id":33,"name":"Manchester United"},"venue":{"id":556,"name":"Old Trafford","city":"Manchester","capacity":76212}}`
	b := `{"team":{"id":34,"name":"Newcastle"},"venue":{"id":556,"name":"Old Trafford","city":"Manchester","capacity":76212}}`
	out := Teams(rawItems(a, b))
	require.Len(t, out.Teams, 2)
	require.Len(t, out.Venues, 1)
	require.Equal(t, int64(556), out.Venues[0].ID)
}

func TestTimezones(t *testing.T) {
	rows, skipped := Timezones(rawItems(`"Europe/London"`, `"UTC"`))
	require.Zero(t, skipped)
	require.Len(t, rows, 2)
	require.Equal(t, "Europe/London", rows[0].Name)
}
