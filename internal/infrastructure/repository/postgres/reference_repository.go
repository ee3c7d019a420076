package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/reference"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type ReferenceRepository struct {
	db *sqlx.DB
}

func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) UpsertCountries(ctx context.Context, items []reference.Country) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]countryInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, countryInsertModel{
			Code: item.Code,
			Name: item.Name,
			Flag: nullableString(item.Flag),
		})
	}

	query, args, err := qb.InsertModels("core.countries", models, `ON CONFLICT (name)
DO UPDATE SET
    code = EXCLUDED.code,
    flag = EXCLUDED.flag,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert countries query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert countries: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) UpsertTimezones(ctx context.Context, items []reference.Timezone) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]timezoneInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, timezoneInsertModel{Name: item.Name})
	}

	query, args, err := qb.InsertModels("core.timezones", models, "ON CONFLICT (name) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build upsert timezones query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert timezones: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) CountCountries(ctx context.Context) (int, error) {
	return r.countTable(ctx, "core.countries")
}

func (r *ReferenceRepository) CountTimezones(ctx context.Context) (int, error) {
	return r.countTable(ctx, "core.timezones")
}

func (r *ReferenceRepository) countTable(ctx context.Context, table string) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From(table).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count query for %s: %w", table, err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

type countryInsertModel struct {
	Code string  `db:"code"`
	Name string  `db:"name"`
	Flag *string `db:"flag"`
}

type timezoneInsertModel struct {
	Name string `db:"name"`
}
