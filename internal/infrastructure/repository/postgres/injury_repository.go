package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/injury"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type InjuryRepository struct {
	db *sqlx.DB
}

func NewInjuryRepository(db *sqlx.DB) *InjuryRepository {
	return &InjuryRepository{db: db}
}

func (r *InjuryRepository) Upsert(ctx context.Context, items []injury.Injury) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]injuryInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, injuryInsertModel{
			InjuryKey:  item.InjuryKey,
			LeagueID:   item.LeagueID,
			Season:     item.Season,
			TeamID:     item.TeamID,
			PlayerID:   item.PlayerID,
			PlayerName: nullableString(item.PlayerName),
			FixtureID:  nullableInt64(item.FixtureID),
			Type:       nullableString(item.Type),
			Reason:     nullableString(item.Reason),
			Date:       nullableTime(item.Date),
		})
	}

	query, args, err := qb.InsertModels("core.injuries", models, `ON CONFLICT (league_id, season, injury_key)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    player_id = EXCLUDED.player_id,
    player_name = EXCLUDED.player_name,
    fixture_id = EXCLUDED.fixture_id,
    type = EXCLUDED.type,
    reason = EXCLUDED.reason,
    date = EXCLUDED.date,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert injuries query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert injuries: %w", err)
	}
	return nil
}

func (r *InjuryRepository) Count(ctx context.Context, leagueID int64, season int) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("core.injuries").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count injuries query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count injuries league=%d season=%d: %w", leagueID, season, err)
	}
	return count, nil
}

func (r *InjuryRepository) LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(updated_at)").From("core.injuries").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build injuries last update query: %w", err)
	}

	var last *time.Time
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("get injuries last update league=%d season=%d: %w", leagueID, season, err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

type injuryInsertModel struct {
	InjuryKey  string        `db:"injury_key"`
	LeagueID   int64         `db:"league_id"`
	Season     int           `db:"season"`
	TeamID     int64         `db:"team_id"`
	PlayerID   int64         `db:"player_id"`
	PlayerName *string       `db:"player_name"`
	FixtureID  sql.NullInt64 `db:"fixture_id"`
	Type       *string       `db:"type"`
	Reason     *string       `db:"reason"`
	Date       sql.NullTime  `db:"date"`
}
