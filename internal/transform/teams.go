package transform

import (
	sonic "github.com/bytedance/sonic"

	"github.com/blkn1/API-Football-Collector-sub000/external/apifootball"
	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/team"
)

type teamPayload struct {
	Team struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Code     string `json:"code"`
		Country  string `json:"country"`
		Founded  int    `json:"founded"`
		National bool   `json:"national"`
		Logo     string `json:"logo"`
	} `json:"team"`
	Venue struct {
		ID       *int64 `json:"id"`
		Name     string `json:"name"`
		Address  string `json:"address"`
		City     string `json:"city"`
		Capacity int    `json:"capacity"`
		Surface  string `json:"surface"`
		Image    string `json:"image"`
	} `json:"venue"`
}

// TeamRows is the output of the teams transformer. Venues come first so the
// caller can satisfy the FK before writing teams.
type TeamRows struct {
	Venues  []team.Venue
	Teams   []team.Team
	Skipped int
}

// Teams normalizes a /teams envelope. Venue id 0 means unknown and is
// dropped from both the venue list and the team's reference.
func Teams(items []apifootball.RawItem) TeamRows {
	var out TeamRows
	seenVenues := make(map[int64]struct{})

	for _, item := range items {
		var payload teamPayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.Team.ID == 0 {
			out.Skipped++
			continue
		}

		row := team.Team{
			ID:       payload.Team.ID,
			Name:     payload.Team.Name,
			Code:     payload.Team.Code,
			Country:  payload.Team.Country,
			Founded:  payload.Team.Founded,
			National: payload.Team.National,
			Logo:     payload.Team.Logo,
		}

		if id := payload.Venue.ID; id != nil && *id != 0 {
			row.VenueID = id
			if _, seen := seenVenues[*id]; !seen {
				seenVenues[*id] = struct{}{}
				out.Venues = append(out.Venues, team.Venue{
					ID:       *id,
					Name:     payload.Venue.Name,
					Address:  payload.Venue.Address,
					City:     payload.Venue.City,
					Capacity: payload.Venue.Capacity,
					Surface:  payload.Venue.Surface,
					Image:    payload.Venue.Image,
				})
			}
		}
		out.Teams = append(out.Teams, row)
	}
	return out
}

type venuePayload struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Capacity int    `json:"capacity"`
	Surface  string `json:"surface"`
	Image    string `json:"image"`
}

// Venues normalizes a /venues envelope (venue enrichment backfill).
func Venues(items []apifootball.RawItem) ([]team.Venue, int) {
	rows := make([]team.Venue, 0, len(items))
	skipped := 0
	for _, item := range items {
		var payload venuePayload
		if err := sonic.Unmarshal(item, &payload); err != nil || payload.ID == 0 {
			skipped++
			continue
		}
		rows = append(rows, team.Venue{
			ID:       payload.ID,
			Name:     payload.Name,
			Address:  payload.Address,
			City:     payload.City,
			Capacity: payload.Capacity,
			Surface:  payload.Surface,
			Image:    payload.Image,
		})
	}
	return rows, skipped
}
