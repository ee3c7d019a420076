package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/coverage"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type CoverageRepository struct {
	db *sqlx.DB
}

func NewCoverageRepository(db *sqlx.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

func (r *CoverageRepository) Upsert(ctx context.Context, items []coverage.Report) error {
	if len(items) == 0 {
		return nil
	}

	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, item := range items {
			flags, err := jsonText(item.Flags)
			if err != nil {
				return err
			}

			calculatedAt := item.CalculatedAt
			if calculatedAt.IsZero() {
				calculatedAt = time.Now().UTC()
			}

			insertModel := coverageInsertModel{
				LeagueID:          item.LeagueID,
				Season:            item.Season,
				Endpoint:          item.Endpoint,
				ExpectedCount:     item.ExpectedCount,
				ActualCount:       item.ActualCount,
				CountCoverage:     item.CountCoverage,
				FreshnessCoverage: item.FreshnessCoverage,
				PipelineCoverage:  item.PipelineCoverage,
				OverallCoverage:   item.OverallCoverage,
				LastUpdate:        nullableTime(item.LastUpdate),
				LagMinutes:        item.LagMinutes,
				Flags:             flags,
				CalculatedAt:      calculatedAt,
			}

			query, args, err := qb.InsertModel("mart.coverage", insertModel, `ON CONFLICT (league_id, season, endpoint)
DO UPDATE SET
    expected_count = EXCLUDED.expected_count,
    actual_count = EXCLUDED.actual_count,
    count_coverage = EXCLUDED.count_coverage,
    freshness_coverage = EXCLUDED.freshness_coverage,
    pipeline_coverage = EXCLUDED.pipeline_coverage,
    overall_coverage = EXCLUDED.overall_coverage,
    last_update = EXCLUDED.last_update,
    lag_minutes = EXCLUDED.lag_minutes,
    flags = EXCLUDED.flags,
    calculated_at = EXCLUDED.calculated_at`)
			if err != nil {
				return fmt.Errorf("build upsert coverage query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert coverage league=%d endpoint=%s: %w", item.LeagueID, item.Endpoint, err)
			}
		}
		return nil
	})
}

// RefreshViews rebuilds the dashboard rollups. Non-concurrent refresh is
// fine here: the views are read by dashboards, not by the pipeline.
func (r *CoverageRepository) RefreshViews(ctx context.Context) error {
	for _, view := range []string{"mart.daily_dashboard", "mart.live_scoreboard"} {
		if _, err := r.db.ExecContext(ctx, "REFRESH MATERIALIZED VIEW "+view); err != nil {
			return fmt.Errorf("refresh materialized view %s: %w", view, err)
		}
	}
	return nil
}

type coverageInsertModel struct {
	LeagueID          int64        `db:"league_id"`
	Season            int          `db:"season"`
	Endpoint          string       `db:"endpoint"`
	ExpectedCount     int          `db:"expected_count"`
	ActualCount       int          `db:"actual_count"`
	CountCoverage     *float64     `db:"count_coverage"`
	FreshnessCoverage float64      `db:"freshness_coverage"`
	PipelineCoverage  float64      `db:"pipeline_coverage"`
	OverallCoverage   float64      `db:"overall_coverage"`
	LastUpdate        sql.NullTime `db:"last_update"`
	LagMinutes        int          `db:"lag_minutes"`
	Flags             *string      `db:"flags"`
	CalculatedAt      time.Time    `db:"calculated_at"`
}
