package league

import "context"

type Repository interface {
	Upsert(ctx context.Context, items []League) error
	GetByID(ctx context.Context, id int64) (League, bool, error)

	// TypeByID returns the competition type ("League"/"Cup") or ok=false
	// when the league is not present in core.
	TypeByID(ctx context.Context, id int64) (string, bool, error)
}
