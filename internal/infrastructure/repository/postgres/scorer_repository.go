package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/scorer"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type ScorerRepository struct {
	db *sqlx.DB
}

func NewScorerRepository(db *sqlx.DB) *ScorerRepository {
	return &ScorerRepository{db: db}
}

func (r *ScorerRepository) Upsert(ctx context.Context, items []scorer.TopScorer) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]scorerInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, scorerInsertModel{
			LeagueID:   item.LeagueID,
			Season:     item.Season,
			PlayerID:   item.PlayerID,
			PlayerName: nullableString(item.PlayerName),
			TeamID:     item.TeamID,
			TeamName:   nullableString(item.TeamName),
			Rank:       item.Rank,
			Goals:      item.Goals,
			Assists:    item.Assists,
			Raw:        nullableString(item.RawJSON),
		})
	}

	query, args, err := qb.InsertModels("core.top_scorers", models, `ON CONFLICT (league_id, season, player_id)
DO UPDATE SET
    player_name = EXCLUDED.player_name,
    team_id = EXCLUDED.team_id,
    team_name = EXCLUDED.team_name,
    rank = EXCLUDED.rank,
    goals = EXCLUDED.goals,
    assists = EXCLUDED.assists,
    raw = EXCLUDED.raw,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert top scorers query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert top scorers: %w", err)
	}
	return nil
}

func (r *ScorerRepository) Count(ctx context.Context, leagueID int64, season int) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("core.top_scorers").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count top scorers query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count top scorers league=%d season=%d: %w", leagueID, season, err)
	}
	return count, nil
}

func (r *ScorerRepository) LastUpdate(ctx context.Context, leagueID int64, season int) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(updated_at)").From("core.top_scorers").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build top scorers last update query: %w", err)
	}

	var last *time.Time
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("get top scorers last update league=%d season=%d: %w", leagueID, season, err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

type scorerInsertModel struct {
	LeagueID   int64   `db:"league_id"`
	Season     int     `db:"season"`
	PlayerID   int64   `db:"player_id"`
	PlayerName *string `db:"player_name"`
	TeamID     int64   `db:"team_id"`
	TeamName   *string `db:"team_name"`
	Rank       int     `db:"rank"`
	Goals      int     `db:"goals"`
	Assists    int     `db:"assists"`
	Raw        *string `db:"raw"`
}
