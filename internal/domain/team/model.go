package team

// Team is the normalized core row for an upstream team. VenueID is nil when
// the feed reports no venue or venue id 0.
type Team struct {
	ID       int64
	Name     string
	Code     string
	Country  string
	Founded  int
	National bool
	Logo     string
	VenueID  *int64
}

type Venue struct {
	ID       int64
	Name     string
	Address  string
	City     string
	Capacity int
	Surface  string
	Image    string
}

// IsStub reports whether the venue carries nothing beyond its id. Stub rows
// are pre-created so foreign keys hold, then enriched by the venue backfill.
func (v Venue) IsStub() bool {
	return v.Name == "" && v.City == "" && v.Capacity == 0
}
