package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/teamstats"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type TeamStatsRepository struct {
	db *sqlx.DB
}

func NewTeamStatsRepository(db *sqlx.DB) *TeamStatsRepository {
	return &TeamStatsRepository{db: db}
}

func (r *TeamStatsRepository) Upsert(ctx context.Context, item teamstats.SeasonStats) error {
	insertModel := teamStatsInsertModel{
		LeagueID: item.LeagueID,
		Season:   item.Season,
		TeamID:   item.TeamID,
		Form:     nullableString(item.Form),
		Played:   item.Played,
		Wins:     item.Wins,
		Draws:    item.Draws,
		Loses:    item.Loses,
		Raw:      nullableString(item.RawJSON),
	}

	query, args, err := qb.InsertModel("core.team_statistics", insertModel, `ON CONFLICT (league_id, season, team_id)
DO UPDATE SET
    form = EXCLUDED.form,
    played = EXCLUDED.played,
    wins = EXCLUDED.wins,
    draws = EXCLUDED.draws,
    loses = EXCLUDED.loses,
    raw = EXCLUDED.raw,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert team statistics query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team statistics league=%d team=%d: %w", item.LeagueID, item.TeamID, err)
	}
	return nil
}

func (r *TeamStatsRepository) Count(ctx context.Context, leagueID int64, season int) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("core.team_statistics").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count team statistics query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count team statistics league=%d season=%d: %w", leagueID, season, err)
	}
	return count, nil
}

func (r *TeamStatsRepository) LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(updated_at)").From("core.team_statistics").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build team statistics last update query: %w", err)
	}

	var last *time.Time
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("get team statistics last update league=%d season=%d: %w", leagueID, season, err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

type teamStatsInsertModel struct {
	LeagueID int64   `db:"league_id"`
	Season   int     `db:"season"`
	TeamID   int64   `db:"team_id"`
	Form     *string `db:"form"`
	Played   int     `db:"played"`
	Wins     int     `db:"wins"`
	Draws    int     `db:"draws"`
	Loses    int     `db:"loses"`
	Raw      *string `db:"raw"`
}
