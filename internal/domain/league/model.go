package league

import "strings"

const (
	TypeLeague = "League"
	TypeCup    = "Cup"
)

// Season is one entry of a league's season metadata array.
type Season struct {
	Year    int    `json:"year"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Current bool   `json:"current"`
}

type League struct {
	ID          int64
	Name        string
	Type        string
	Logo        string
	CountryName string
	CountryCode string
	CountryFlag string
	Seasons     []Season
}

// HasSeasonDates reports whether the metadata array carries the given season
// with both start and end dates. The dependency resolver refreshes the
// league when this is false.
func (l League) HasSeasonDates(year int) bool {
	for _, s := range l.Seasons {
		if s.Year == year && strings.TrimSpace(s.Start) != "" && strings.TrimSpace(s.End) != "" {
			return true
		}
	}
	return false
}

// Tracked is one competition from the daily configuration; the authoritative
// scope of ingestion work.
type Tracked struct {
	ID     int64  `yaml:"id" validate:"required,gt=0"`
	Name   string `yaml:"name"`
	Season int    `yaml:"season" validate:"required,gt=2000"`
}
