package rawdata

import "time"

// Exchange is one completed upstream call, archived verbatim. Rows are
// immutable after insert; the raw tier is the replay source for the whole
// pipeline.
type Exchange struct {
	Endpoint  string
	Params    map[string]string
	Status    int
	Headers   map[string]string
	Body      []byte
	Errors    map[string]string
	Results   int
	FetchedAt time.Time
}
