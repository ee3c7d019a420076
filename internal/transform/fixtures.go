package transform

import (
	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
)

type fixturePayload struct {
	Fixture struct {
		ID        int64  `json:"id"`
		Referee   string `json:"referee"`
		Timezone  string `json:"timezone"`
		Date      string `json:"date"`
		Timestamp int64  `json:"timestamp"`
		Venue     struct {
			ID   *int64 `json:"id"`
			Name string `json:"name"`
			City string `json:"city"`
		} `json:"venue"`
		Status struct {
			Long    string `json:"long"`
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Season int    `json:"season"`
		Round  string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// VenueRef is a venue mention inside a fixture payload, enough for the
// dependency resolver to pre-create the row.
type VenueRef struct {
	ID   int64
	Name string
	City string
}

// FixtureRows is the output of the fixtures transformer: one core row per
// item, detail rows for items carrying sections, and the referenced venues.
type FixtureRows struct {
	Fixtures []fixture.Fixture
	Details  []fixture.Details
	Venues   []VenueRef
	Skipped  int
}

// Fixtures normalizes a /fixtures envelope. Malformed items are skipped and
// counted; the batch survives. Venue id 0 is the upstream "unknown" marker
// and becomes NULL.
func Fixtures(items []apifootball.RawItem) FixtureRows {
	var out FixtureRows
	seenVenues := make(map[int64]struct{})

	for _, item := range items {
		var payload fixturePayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Fixture.ID == 0 {
			out.Skipped++
			continue
		}

		kickoff, ok := ParseDatetime(payload.Fixture.Date)
		if !ok {
			out.Skipped++
			continue
		}

		row := fixture.Fixture{
			ID:          payload.Fixture.ID,
			LeagueID:    payload.League.ID,
			Season:      payload.League.Season,
			Round:       payload.League.Round,
			HomeTeamID:  payload.Teams.Home.ID,
			AwayTeamID:  payload.Teams.Away.ID,
			Referee:     payload.Fixture.Referee,
			KickoffAt:   kickoff.UTC(),
			Timestamp:   payload.Fixture.Timestamp,
			StatusShort: payload.Fixture.Status.Short,
			StatusLong:  payload.Fixture.Status.Long,
			Elapsed:     payload.Fixture.Status.Elapsed,
			GoalsHome:   payload.Goals.Home,
			GoalsAway:   payload.Goals.Away,
		}
		if id := payload.Fixture.Venue.ID; id != nil && *id != 0 {
			row.VenueID = id
			if _, seen := seenVenues[*id]; !seen {
				seenVenues[*id] = struct{}{}
				out.Venues = append(out.Venues, VenueRef{
					ID:   *id,
					Name: payload.Fixture.Venue.Name,
					City: payload.Fixture.Venue.City,
				})
			}
		}

		row.ScoreJSON, _ = normalizedSection(item, "score")

		out.Fixtures = append(out.Fixtures, row)

		details := fixture.Details{FixtureID: payload.Fixture.ID}
		details.EventsJSON, _ = normalizedSection(item, "events")
		details.LineupsJSON, _ = normalizedSection(item, "lineups")
		details.StatisticsJSON, _ = normalizedSection(item, "statistics")
		details.PlayersJSON, _ = normalizedSection(item, "players")
		if details.HasAny() {
			out.Details = append(out.Details, details)
		}
	}
	return out
}

// normalizedSection extracts one top-level section of the item, rewrites
// nested datetimes to UTC, and re-encodes it. Returns "" when the section is
// absent or empty.
func normalizedSection(item []byte, key string) (string, error) {
	var doc map[string]any
	if err := sonic.Unmarshal(item, &doc); err != nil {
		return "", err
	}
	section, ok := doc[key]
	if !ok || section == nil {
		return "", nil
	}
	if list, isList := section.([]any); isList && len(list) == 0 {
		return "", nil
	}

	encoded, err := sonic.Marshal(NormalizeDatetimes(section))
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// CompareState is the live-delta projection of one fixture row.
func CompareState(f fixture.Fixture) map[string]any {
	return map[string]any{
		"status":     f.StatusShort,
		"goals_home": optIntValue(f.GoalsHome),
		"goals_away": optIntValue(f.GoalsAway),
		"elapsed":    optIntValue(f.Elapsed),
	}
}

func optIntValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// GroupFixtures buckets rows by (league, season), preserving input order
// inside each bucket. Used before dependency resolution so each group can be
// written in one transaction.
func GroupFixtures(rows FixtureRows) map[LeagueSeason]FixtureRows {
	groups := make(map[LeagueSeason]FixtureRows)
	detailIndex := make(map[int64]fixture.Details, len(rows.Details))
	for _, d := range rows.Details {
		detailIndex[d.FixtureID] = d
	}

	for _, f := range rows.Fixtures {
		key := LeagueSeason{LeagueID: f.LeagueID, Season: f.Season}
		group := groups[key]
		group.Fixtures = append(group.Fixtures, f)
		if d, ok := detailIndex[f.ID]; ok {
			group.Details = append(group.Details, d)
		}
		groups[key] = group
	}
	return groups
}

// LeagueSeason identifies one competition season.
type LeagueSeason struct {
	LeagueID int64
	Season   int
}
