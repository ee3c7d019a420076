package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/progress"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

// ProgressRepository persists every resume cursor the jobs rely on. The
// collector keeps no in-memory resumption state, so a restart picks up
// exactly where these rows say.
type ProgressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) GetBackfill(ctx context.Context, jobID string, leagueID int64, season int) (progress.Backfill, bool, error) {
	query, args, err := qb.Select("*").From("core.backfill_progress").
		Where(qb.Eq("job_id", jobID), qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return progress.Backfill{}, false, fmt.Errorf("build get backfill progress query: %w", err)
	}

	var row backfillProgressModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return progress.Backfill{}, false, nil
		}
		return progress.Backfill{}, false, fmt.Errorf("get backfill progress job=%s: %w", jobID, err)
	}

	out := progress.Backfill{
		JobID:     row.JobID,
		LeagueID:  row.LeagueID,
		Season:    row.Season,
		NextPage:  row.NextPage,
		Completed: row.Completed,
		LastError: row.LastError.String,
	}
	if row.UpdatedAt.Valid {
		out.UpdatedAt = row.UpdatedAt.Time
	}
	return out, true, nil
}

func (r *ProgressRepository) UpsertBackfill(ctx context.Context, item progress.Backfill) error {
	insertModel := backfillProgressInsertModel{
		JobID:     item.JobID,
		LeagueID:  item.LeagueID,
		Season:    item.Season,
		NextPage:  item.NextPage,
		Completed: item.Completed,
		LastError: nullableString(item.LastError),
	}

	query, args, err := qb.InsertModel("core.backfill_progress", insertModel, `ON CONFLICT (job_id, league_id, season)
DO UPDATE SET
    next_page = EXCLUDED.next_page,
    completed = EXCLUDED.completed,
    last_error = EXCLUDED.last_error,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert backfill progress query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert backfill progress job=%s league=%d: %w", item.JobID, item.LeagueID, err)
	}
	return nil
}

func (r *ProgressRepository) GetTeamBootstrap(ctx context.Context, leagueID int64, season int) (progress.TeamBootstrap, bool, error) {
	query, args, err := qb.Select("*").From("core.team_bootstrap_progress").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return progress.TeamBootstrap{}, false, fmt.Errorf("build get team bootstrap query: %w", err)
	}

	var row teamBootstrapModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return progress.TeamBootstrap{}, false, nil
		}
		return progress.TeamBootstrap{}, false, fmt.Errorf("get team bootstrap league=%d season=%d: %w", leagueID, season, err)
	}

	out := progress.TeamBootstrap{
		LeagueID:  row.LeagueID,
		Season:    row.Season,
		Completed: row.Completed,
		LastError: row.LastError.String,
	}
	if row.UpdatedAt.Valid {
		out.UpdatedAt = row.UpdatedAt.Time
	}
	return out, true, nil
}

func (r *ProgressRepository) UpsertTeamBootstrap(ctx context.Context, item progress.TeamBootstrap) error {
	insertModel := teamBootstrapInsertModel{
		LeagueID:  item.LeagueID,
		Season:    item.Season,
		Completed: item.Completed,
		LastError: nullableString(item.LastError),
	}

	query, args, err := qb.InsertModel("core.team_bootstrap_progress", insertModel, `ON CONFLICT (league_id, season)
DO UPDATE SET
    completed = EXCLUDED.completed,
    last_error = EXCLUDED.last_error,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert team bootstrap query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team bootstrap league=%d season=%d: %w", item.LeagueID, item.Season, err)
	}
	return nil
}

func (r *ProgressRepository) GetTeamStatsCursor(ctx context.Context, leagueID int64, season int, teamID int64) (progress.TeamStatsCursor, bool, error) {
	query, args, err := qb.Select("*").From("core.team_statistics_progress").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season), qb.Eq("team_id", teamID)).
		ToSQL()
	if err != nil {
		return progress.TeamStatsCursor{}, false, fmt.Errorf("build get team stats cursor query: %w", err)
	}

	var row teamStatsCursorModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return progress.TeamStatsCursor{}, false, nil
		}
		return progress.TeamStatsCursor{}, false, fmt.Errorf("get team stats cursor team=%d: %w", teamID, err)
	}
	return row.toDomain(), true, nil
}

func (r *ProgressRepository) UpsertTeamStatsCursor(ctx context.Context, item progress.TeamStatsCursor) error {
	insertModel := teamStatsCursorInsertModel{
		LeagueID:      item.LeagueID,
		Season:        item.Season,
		TeamID:        item.TeamID,
		LastFetchedAt: nullableTime(item.LastFetchedAt),
	}

	query, args, err := qb.InsertModel("core.team_statistics_progress", insertModel, `ON CONFLICT (league_id, season, team_id)
DO UPDATE SET
    last_fetched_at = EXCLUDED.last_fetched_at,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert team stats cursor query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert team stats cursor team=%d: %w", item.TeamID, err)
	}
	return nil
}

func (r *ProgressRepository) SeedTeamStatsCursors(ctx context.Context, leagueID int64, season int, teamIDs []int64) error {
	if len(teamIDs) == 0 {
		return nil
	}

	models := make([]teamStatsCursorInsertModel, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		models = append(models, teamStatsCursorInsertModel{
			LeagueID: leagueID,
			Season:   season,
			TeamID:   teamID,
		})
	}

	query, args, err := qb.InsertModels("core.team_statistics_progress", models,
		"ON CONFLICT (league_id, season, team_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build seed team stats cursors query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seed team stats cursors league=%d season=%d: %w", leagueID, season, err)
	}
	return nil
}

func (r *ProgressRepository) OldestTeamStatsCursors(ctx context.Context, leagueID int64, season int, limit int) ([]progress.TeamStatsCursor, error) {
	query, args, err := qb.Select("*").From("core.team_statistics_progress").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		OrderBy("last_fetched_at ASC NULLS FIRST").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build oldest team stats cursors query: %w", err)
	}

	var rows []teamStatsCursorModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select oldest team stats cursors league=%d season=%d: %w", leagueID, season, err)
	}

	out := make([]progress.TeamStatsCursor, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ProgressRepository) GetRoundRobin(ctx context.Context, jobID string) (progress.RoundRobin, bool, error) {
	query, args, err := qb.Select("*").From("core.standings_refresh_progress").
		Where(qb.Eq("job_id", jobID)).
		ToSQL()
	if err != nil {
		return progress.RoundRobin{}, false, fmt.Errorf("build get round robin query: %w", err)
	}

	var row roundRobinModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return progress.RoundRobin{}, false, nil
		}
		return progress.RoundRobin{}, false, fmt.Errorf("get round robin job=%s: %w", jobID, err)
	}
	return progress.RoundRobin{JobID: row.JobID, Position: row.Position, Lap: row.Lap}, true, nil
}

func (r *ProgressRepository) UpsertRoundRobin(ctx context.Context, item progress.RoundRobin) error {
	insertModel := roundRobinInsertModel{
		JobID:    item.JobID,
		Position: item.Position,
		Lap:      item.Lap,
	}

	query, args, err := qb.InsertModel("core.standings_refresh_progress", insertModel, `ON CONFLICT (job_id)
DO UPDATE SET
    position = EXCLUDED.position,
    lap = EXCLUDED.lap,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert round robin query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert round robin job=%s: %w", item.JobID, err)
	}
	return nil
}

type backfillProgressInsertModel struct {
	JobID     string  `db:"job_id"`
	LeagueID  int64   `db:"league_id"`
	Season    int     `db:"season"`
	NextPage  int     `db:"next_page"`
	Completed bool    `db:"completed"`
	LastError *string `db:"last_error"`
}

type backfillProgressModel struct {
	JobID     string         `db:"job_id"`
	LeagueID  int64          `db:"league_id"`
	Season    int            `db:"season"`
	NextPage  int            `db:"next_page"`
	Completed bool           `db:"completed"`
	LastError sql.NullString `db:"last_error"`
	CreatedAt sql.NullTime   `db:"created_at"`
	UpdatedAt sql.NullTime   `db:"updated_at"`
}

type teamBootstrapInsertModel struct {
	LeagueID  int64   `db:"league_id"`
	Season    int     `db:"season"`
	Completed bool    `db:"completed"`
	LastError *string `db:"last_error"`
}

type teamBootstrapModel struct {
	LeagueID  int64          `db:"league_id"`
	Season    int            `db:"season"`
	Completed bool           `db:"completed"`
	LastError sql.NullString `db:"last_error"`
	CreatedAt sql.NullTime   `db:"created_at"`
	UpdatedAt sql.NullTime   `db:"updated_at"`
}

type teamStatsCursorInsertModel struct {
	LeagueID      int64        `db:"league_id"`
	Season        int          `db:"season"`
	TeamID        int64        `db:"team_id"`
	LastFetchedAt sql.NullTime `db:"last_fetched_at"`
}

type teamStatsCursorModel struct {
	LeagueID      int64        `db:"league_id"`
	Season        int          `db:"season"`
	TeamID        int64        `db:"team_id"`
	LastFetchedAt sql.NullTime `db:"last_fetched_at"`
	CreatedAt     sql.NullTime `db:"created_at"`
	UpdatedAt     sql.NullTime `db:"updated_at"`
}

func (m teamStatsCursorModel) toDomain() progress.TeamStatsCursor {
	return progress.TeamStatsCursor{
		LeagueID:      m.LeagueID,
		Season:        m.Season,
		TeamID:        m.TeamID,
		LastFetchedAt: nullTimePtr(m.LastFetchedAt),
	}
}

type roundRobinInsertModel struct {
	JobID    string `db:"job_id"`
	Position int    `db:"position"`
	Lap      int    `db:"lap"`
}

type roundRobinModel struct {
	JobID     string       `db:"job_id"`
	Position  int          `db:"position"`
	Lap       int          `db:"lap"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}
