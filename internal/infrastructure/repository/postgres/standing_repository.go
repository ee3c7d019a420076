package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/standing"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type StandingRepository struct {
	db *sqlx.DB
}

func NewStandingRepository(db *sqlx.DB) *StandingRepository {
	return &StandingRepository{db: db}
}

// Replace swaps the whole table for (league, season) in one transaction.
// There is deliberately no path where the delete commits without the insert.
func (r *StandingRepository) Replace(ctx context.Context, leagueID int64, season int, rows []standing.Row) error {
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		deleteQuery, deleteArgs, err := qb.DeleteFrom("core.standings").
			Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build delete standings query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
			return fmt.Errorf("delete standings league=%d season=%d: %w", leagueID, season, err)
		}

		if len(rows) == 0 {
			return nil
		}

		models := make([]standingInsertModel, 0, len(rows))
		for _, row := range rows {
			models = append(models, standingInsertModel{
				LeagueID:     row.LeagueID,
				Season:       row.Season,
				GroupName:    nullableString(row.GroupName),
				TeamID:       row.TeamID,
				TeamName:     nullableString(row.TeamName),
				Rank:         row.Rank,
				Points:       row.Points,
				GoalsDiff:    row.GoalsDiff,
				Form:         nullableString(row.Form),
				Status:       nullableString(row.Status),
				Description:  nullableString(row.Description),
				Played:       row.Played,
				Win:          row.Win,
				Draw:         row.Draw,
				Lose:         row.Lose,
				GoalsFor:     row.GoalsFor,
				GoalsAgainst: row.GoalsAgainst,
				UpdatedAtAPI: nullableTime(row.UpdatedAtAPI),
			})
		}

		insertQuery, insertArgs, err := qb.InsertModels("core.standings", models, "")
		if err != nil {
			return fmt.Errorf("build insert standings query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return fmt.Errorf("insert standings league=%d season=%d: %w", leagueID, season, err)
		}
		return nil
	})
}

func (r *StandingRepository) Count(ctx context.Context, leagueID int64, season int) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("core.standings").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count standings query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count standings league=%d season=%d: %w", leagueID, season, err)
	}
	return count, nil
}

func (r *StandingRepository) LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(updated_at)").From("core.standings").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build standings last update query: %w", err)
	}

	var last *time.Time
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("get standings last update league=%d season=%d: %w", leagueID, season, err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

type standingInsertModel struct {
	LeagueID     int64        `db:"league_id"`
	Season       int          `db:"season"`
	GroupName    *string      `db:"group_name"`
	TeamID       int64        `db:"team_id"`
	TeamName     *string      `db:"team_name"`
	Rank         int          `db:"rank"`
	Points       int          `db:"points"`
	GoalsDiff    int          `db:"goals_diff"`
	Form         *string      `db:"form"`
	Status       *string      `db:"status"`
	Description  *string      `db:"description"`
	Played       int          `db:"played"`
	Win          int          `db:"win"`
	Draw         int          `db:"draw"`
	Lose         int          `db:"lose"`
	GoalsFor     int          `db:"goals_for"`
	GoalsAgainst int          `db:"goals_against"`
	UpdatedAtAPI sql.NullTime `db:"updated_at_api"`
}
