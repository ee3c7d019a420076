package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/rawdata"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

// RawRepository owns the append-only archive tier.
type RawRepository struct {
	db *sqlx.DB
}

func NewRawRepository(db *sqlx.DB) *RawRepository {
	return &RawRepository{db: db}
}

func (r *RawRepository) Append(ctx context.Context, item rawdata.Exchange) error {
	params, err := jsonText(item.Params)
	if err != nil {
		return err
	}
	headers, err := jsonText(item.Headers)
	if err != nil {
		return err
	}
	errors, err := jsonText(item.Errors)
	if err != nil {
		return err
	}

	fetchedAt := item.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	insertModel := rawExchangeInsertModel{
		Endpoint:  item.Endpoint,
		Params:    params,
		Status:    item.Status,
		Headers:   headers,
		Body:      string(item.Body),
		Errors:    errors,
		Results:   item.Results,
		FetchedAt: fetchedAt,
	}

	query, args, err := qb.InsertModel("raw.api_responses", insertModel, "")
	if err != nil {
		return fmt.Errorf("build append raw exchange query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append raw exchange endpoint=%s: %w", item.Endpoint, err)
	}
	return nil
}

func (r *RawRepository) CountSince(ctx context.Context, endpoint string, leagueID int64, season int, since time.Time) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("raw.api_responses").
		Where(
			qb.Eq("endpoint", endpoint),
			qb.Expr("params->>'league' = ?", fmt.Sprint(leagueID)),
			qb.Expr("params->>'season' = ?", fmt.Sprint(season)),
			qb.Expr("fetched_at >= ?", since),
		).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count raw exchanges query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count raw exchanges endpoint=%s: %w", endpoint, err)
	}
	return count, nil
}

func (r *RawRepository) HasSuccess(ctx context.Context, endpoint string, leagueID int64, season int) (bool, error) {
	query, args, err := qb.Select("COUNT(*)").From("raw.api_responses").
		Where(
			qb.Eq("endpoint", endpoint),
			qb.Eq("status", 200),
			qb.Expr("params->>'league' = ?", fmt.Sprint(leagueID)),
			qb.Expr("params->>'season' = ?", fmt.Sprint(season)),
			qb.Expr("(errors IS NULL OR errors::text IN ('[]', '{}', 'null'))"),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build raw success probe query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("probe raw success endpoint=%s: %w", endpoint, err)
	}
	return count > 0, nil
}

func (r *RawRepository) FixtureIDsWithCall(ctx context.Context, endpoint string, fixtureIDs []int64) (map[int64]struct{}, error) {
	if len(fixtureIDs) == 0 {
		return map[int64]struct{}{}, nil
	}

	values := make([]any, 0, len(fixtureIDs))
	for _, id := range fixtureIDs {
		values = append(values, fmt.Sprint(id))
	}
	query, args, err := qb.Select("DISTINCT params->>'fixture' AS fixture_id").From("raw.api_responses").
		Where(
			qb.Eq("endpoint", endpoint),
			qb.In("params->>'fixture'", values),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build raw fixture probe query: %w", err)
	}

	var rows []string
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("probe raw fixture calls endpoint=%s: %w", endpoint, err)
	}

	out := make(map[int64]struct{}, len(rows))
	for _, raw := range rows {
		var id int64
		if _, err := fmt.Sscan(raw, &id); err == nil {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type rawExchangeInsertModel struct {
	Endpoint  string    `db:"endpoint"`
	Params    *string   `db:"params"`
	Status    int       `db:"status"`
	Headers   *string   `db:"headers"`
	Body      string    `db:"body"`
	Errors    *string   `db:"errors"`
	Results   int       `db:"results"`
	FetchedAt time.Time `db:"fetched_at"`
}
