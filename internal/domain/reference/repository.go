package reference

import "context"

type Repository interface {
	UpsertCountries(ctx context.Context, items []Country) error
	UpsertTimezones(ctx context.Context, items []Timezone) error
	CountCountries(ctx context.Context) (int, error)
	CountTimezones(ctx context.Context) (int, error)
}
