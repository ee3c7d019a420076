package coverage

import "context"

type Repository interface {
	Upsert(ctx context.Context, items []Report) error

	// RefreshViews rebuilds the mart rollup views after a snapshot write.
	RefreshViews(ctx context.Context) error
}
