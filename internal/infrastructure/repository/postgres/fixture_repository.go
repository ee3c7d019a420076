package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/fixture"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

const fixtureUpsertSuffix = `ON CONFLICT (id)
DO UPDATE SET
    league_id = EXCLUDED.league_id,
    season = EXCLUDED.season,
    round = EXCLUDED.round,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    venue_id = EXCLUDED.venue_id,
    referee = EXCLUDED.referee,
    kickoff_at = EXCLUDED.kickoff_at,
    kickoff_ts = EXCLUDED.kickoff_ts,
    status_short = EXCLUDED.status_short,
    status_long = EXCLUDED.status_long,
    elapsed = EXCLUDED.elapsed,
    goals_home = EXCLUDED.goals_home,
    goals_away = EXCLUDED.goals_away,
    score = EXCLUDED.score,
    needs_score_verification = EXCLUDED.needs_score_verification,
    updated_at = NOW()`

const fixtureDetailsUpsertSuffix = `ON CONFLICT (fixture_id)
DO UPDATE SET
    events = COALESCE(EXCLUDED.events, core.fixture_details.events),
    lineups = COALESCE(EXCLUDED.lineups, core.fixture_details.lineups),
    statistics = COALESCE(EXCLUDED.statistics, core.fixture_details.statistics),
    players = COALESCE(EXCLUDED.players, core.fixture_details.players),
    updated_at = NOW()`

type FixtureRepository struct {
	db *sqlx.DB
}

func NewFixtureRepository(db *sqlx.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

func (r *FixtureRepository) Upsert(ctx context.Context, items []fixture.Fixture) error {
	if len(items) == 0 {
		return nil
	}
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return upsertFixtures(ctx, tx, items)
	})
}

// UpsertWithDetails writes fixtures and their detail rows in one
// transaction, so a crash can never leave details pointing at stale fixture
// state.
func (r *FixtureRepository) UpsertWithDetails(ctx context.Context, fixtures []fixture.Fixture, details []fixture.Details) error {
	if len(fixtures) == 0 && len(details) == 0 {
		return nil
	}
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := upsertFixtures(ctx, tx, fixtures); err != nil {
			return err
		}
		return upsertDetails(ctx, tx, details)
	})
}

func (r *FixtureRepository) UpsertDetails(ctx context.Context, items []fixture.Details) error {
	if len(items) == 0 {
		return nil
	}
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return upsertDetails(ctx, tx, items)
	})
}

func upsertFixtures(ctx context.Context, tx *sqlx.Tx, items []fixture.Fixture) error {
	for _, item := range items {
		query, args, err := qb.InsertModel("core.fixtures", newFixtureInsertModel(item), fixtureUpsertSuffix)
		if err != nil {
			return fmt.Errorf("build upsert fixture query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert fixture id=%d: %w", item.ID, err)
		}
	}
	return nil
}

func upsertDetails(ctx context.Context, tx *sqlx.Tx, items []fixture.Details) error {
	for _, item := range items {
		insertModel := fixtureDetailsInsertModel{
			FixtureID:  item.FixtureID,
			Events:     nullableString(item.EventsJSON),
			Lineups:    nullableString(item.LineupsJSON),
			Statistics: nullableString(item.StatisticsJSON),
			Players:    nullableString(item.PlayersJSON),
		}
		query, args, err := qb.InsertModel("core.fixture_details", insertModel, fixtureDetailsUpsertSuffix)
		if err != nil {
			return fmt.Errorf("build upsert fixture details query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert fixture details id=%d: %w", item.FixtureID, err)
		}
	}
	return nil
}

func (r *FixtureRepository) UpsertEvents(ctx context.Context, items []fixture.Event) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]fixtureEventInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, fixtureEventInsertModel{
			FixtureID:  item.FixtureID,
			EventKey:   item.EventKey,
			Elapsed:    item.Elapsed,
			Extra:      nullableInt(item.Extra),
			TeamID:     item.TeamID,
			PlayerID:   nullableInt64(item.PlayerID),
			PlayerName: nullableString(item.PlayerName),
			AssistID:   nullableInt64(item.AssistID),
			AssistName: nullableString(item.AssistName),
			Type:       item.Type,
			Detail:     nullableString(item.Detail),
			Comments:   nullableString(item.Comments),
		})
	}

	query, args, err := qb.InsertModels("core.fixture_events", models, `ON CONFLICT (fixture_id, event_key)
DO UPDATE SET
    elapsed = EXCLUDED.elapsed,
    extra = EXCLUDED.extra,
    team_id = EXCLUDED.team_id,
    player_id = EXCLUDED.player_id,
    player_name = EXCLUDED.player_name,
    assist_id = EXCLUDED.assist_id,
    assist_name = EXCLUDED.assist_name,
    type = EXCLUDED.type,
    detail = EXCLUDED.detail,
    comments = EXCLUDED.comments,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert fixture events query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fixture events: %w", err)
	}
	return nil
}

func (r *FixtureRepository) UpsertPlayerStats(ctx context.Context, items []fixture.PlayerStat) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]fixturePlayerInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, fixturePlayerInsertModel{
			FixtureID:  item.FixtureID,
			TeamID:     item.TeamID,
			PlayerID:   item.PlayerID,
			PlayerName: nullableString(item.PlayerName),
			Stats:      item.StatsJSON,
		})
	}

	query, args, err := qb.InsertModels("core.fixture_players", models, `ON CONFLICT (fixture_id, team_id, player_id)
DO UPDATE SET
    player_name = EXCLUDED.player_name,
    stats = EXCLUDED.stats,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert fixture players query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fixture players: %w", err)
	}
	return nil
}

func (r *FixtureRepository) UpsertTeamStats(ctx context.Context, items []fixture.TeamStat) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]fixtureTeamStatInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, fixtureTeamStatInsertModel{
			FixtureID: item.FixtureID,
			TeamID:    item.TeamID,
			Stats:     item.StatsJSON,
		})
	}

	query, args, err := qb.InsertModels("core.fixture_statistics", models, `ON CONFLICT (fixture_id, team_id)
DO UPDATE SET
    stats = EXCLUDED.stats,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert fixture statistics query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fixture statistics: %w", err)
	}
	return nil
}

func (r *FixtureRepository) UpsertLineups(ctx context.Context, items []fixture.Lineup) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]fixtureLineupInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, fixtureLineupInsertModel{
			FixtureID:   item.FixtureID,
			TeamID:      item.TeamID,
			Formation:   nullableString(item.Formation),
			CoachID:     nullableInt64(item.CoachID),
			CoachName:   nullableString(item.CoachName),
			StartXI:     nullableString(item.StartXIJSON),
			Substitutes: nullableString(item.SubstitutesJSON),
		})
	}

	query, args, err := qb.InsertModels("core.fixture_lineups", models, `ON CONFLICT (fixture_id, team_id)
DO UPDATE SET
    formation = EXCLUDED.formation,
    coach_id = EXCLUDED.coach_id,
    coach_name = EXCLUDED.coach_name,
    start_xi = EXCLUDED.start_xi,
    substitutes = EXCLUDED.substitutes,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert fixture lineups query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert fixture lineups: %w", err)
	}
	return nil
}

func (r *FixtureRepository) GetByID(ctx context.Context, id int64) (fixture.Fixture, bool, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fixture.Fixture{}, false, fmt.Errorf("build get fixture query: %w", err)
	}

	var row fixtureTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return fixture.Fixture{}, false, nil
		}
		return fixture.Fixture{}, false, fmt.Errorf("get fixture id=%d: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (r *FixtureRepository) ListByIDs(ctx context.Context, ids []int64) ([]fixture.Fixture, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(qb.In("id", values)).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list fixtures query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListLiveStale(ctx context.Context, olderThan time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(
			qb.In("status_short", statusValues(fixture.LiveStatusList())),
			qb.Expr("updated_at < ?", olderThan),
		).
		OrderBy("updated_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build live stale query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListScheduledOverdue(ctx context.Context, kickoffBefore time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(
			qb.In("status_short", statusValues(fixture.ScheduledStatusList())),
			qb.Expr("kickoff_at < ?", kickoffBefore),
		).
		OrderBy("kickoff_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build scheduled overdue query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListNeedingVerification(ctx context.Context, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(qb.Expr("needs_score_verification = TRUE")).
		OrderBy("kickoff_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build needs verification query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListAutoFinishCandidates(ctx context.Context, kickoffBefore, updatedBefore time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(
			qb.In("status_short", statusValues(fixture.LiveStatusList())),
			qb.Expr("kickoff_at < ?", kickoffBefore),
			qb.Expr("updated_at < ?", updatedBefore),
		).
		OrderBy("kickoff_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build auto finish candidates query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListFinalSince(ctx context.Context, since time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(
			qb.In("status_short", statusValues(fixture.FinalStatusList())),
			qb.Expr("updated_at >= ?", since),
		).
		OrderBy("updated_at DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build final since query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListFinalBetween(ctx context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(
			qb.In("status_short", statusValues(fixture.FinalStatusList())),
			qb.Expr("kickoff_at >= ?", from),
			qb.Expr("kickoff_at <= ?", to),
		).
		OrderBy("kickoff_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build final between query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) ListKickoffBetween(ctx context.Context, from, to time.Time, limit int) ([]fixture.Fixture, error) {
	query, args, err := qb.Select("*").From("core.fixtures").
		Where(
			qb.Expr("kickoff_at >= ?", from),
			qb.Expr("kickoff_at <= ?", to),
		).
		OrderBy("kickoff_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build kickoff window query: %w", err)
	}
	return r.selectFixtures(ctx, query, args)
}

func (r *FixtureRepository) DistinctTeamIDs(ctx context.Context, leagueID int64, season int) ([]int64, error) {
	query, args, err := qb.Select("DISTINCT team_id").
		From("(SELECT home_team_id AS team_id, league_id, season FROM core.fixtures UNION ALL SELECT away_team_id, league_id, season FROM core.fixtures) t").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		OrderBy("team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build distinct teams query: %w", err)
	}

	var rows []int64
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select distinct teams league=%d season=%d: %w", leagueID, season, err)
	}
	return rows, nil
}

func (r *FixtureRepository) CountByLeagueSeason(ctx context.Context, leagueID int64, season int) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("core.fixtures").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count fixtures query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count fixtures league=%d season=%d: %w", leagueID, season, err)
	}
	return count, nil
}

func (r *FixtureRepository) LastUpdateByLeagueSeason(ctx context.Context, leagueID int64, season int) (time.Time, bool, error) {
	query, args, err := qb.Select("MAX(updated_at)").From("core.fixtures").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build last update query: %w", err)
	}

	var last *time.Time
	if err := r.db.GetContext(ctx, &last, query, args...); err != nil {
		return time.Time{}, false, fmt.Errorf("get last update league=%d season=%d: %w", leagueID, season, err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return *last, true, nil
}

func (r *FixtureRepository) selectFixtures(ctx context.Context, query string, args []any) ([]fixture.Fixture, error) {
	var rows []fixtureTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select fixtures: %w", err)
	}
	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func statusValues(statuses []string) []any {
	out := make([]any, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, status)
	}
	return out
}
