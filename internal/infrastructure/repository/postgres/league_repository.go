package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/league"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) Upsert(ctx context.Context, items []league.League) error {
	if len(items) == 0 {
		return nil
	}

	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, item := range items {
			seasons, err := jsonText(item.Seasons)
			if err != nil {
				return err
			}

			insertModel := leagueInsertModel{
				ID:          item.ID,
				Name:        item.Name,
				Type:        item.Type,
				Logo:        nullableString(item.Logo),
				CountryName: nullableString(item.CountryName),
				CountryCode: nullableString(item.CountryCode),
				CountryFlag: nullableString(item.CountryFlag),
				Seasons:     seasons,
			}

			query, args, err := qb.InsertModel("core.leagues", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    type = EXCLUDED.type,
    logo = EXCLUDED.logo,
    country_name = EXCLUDED.country_name,
    country_code = EXCLUDED.country_code,
    country_flag = EXCLUDED.country_flag,
    seasons = EXCLUDED.seasons,
    updated_at = NOW()`)
			if err != nil {
				return fmt.Errorf("build upsert league query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("upsert league id=%d: %w", item.ID, err)
			}
		}
		return nil
	})
}

func (r *LeagueRepository) GetByID(ctx context.Context, id int64) (league.League, bool, error) {
	query, args, err := qb.Select("*").From("core.leagues").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build get league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("get league id=%d: %w", id, err)
	}

	out := league.League{
		ID:          row.ID,
		Name:        row.Name,
		Type:        row.Type,
		Logo:        row.Logo.String,
		CountryName: row.CountryName.String,
		CountryCode: row.CountryCode.String,
		CountryFlag: row.CountryFlag.String,
	}
	if row.Seasons.Valid && row.Seasons.String != "" {
		if err := sonic.Unmarshal([]byte(row.Seasons.String), &out.Seasons); err != nil {
			return league.League{}, false, fmt.Errorf("decode league seasons id=%d: %w", id, err)
		}
	}
	return out, true, nil
}

func (r *LeagueRepository) TypeByID(ctx context.Context, id int64) (string, bool, error) {
	query, args, err := qb.Select("type").From("core.leagues").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build league type query: %w", err)
	}

	var leagueType string
	if err := r.db.GetContext(ctx, &leagueType, query, args...); err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get league type id=%d: %w", id, err)
	}
	return leagueType, true, nil
}

type leagueInsertModel struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Type        string  `db:"type"`
	Logo        *string `db:"logo"`
	CountryName *string `db:"country_name"`
	CountryCode *string `db:"country_code"`
	CountryFlag *string `db:"country_flag"`
	Seasons     *string `db:"seasons"`
}

type leagueTableModel struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Type        string         `db:"type"`
	Logo        sql.NullString `db:"logo"`
	CountryName sql.NullString `db:"country_name"`
	CountryCode sql.NullString `db:"country_code"`
	CountryFlag sql.NullString `db:"country_flag"`
	Seasons     sql.NullString `db:"seasons"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
}
