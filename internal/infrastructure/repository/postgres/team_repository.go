package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/blkn1/API-Football-Collector-sub000/internal/domain/team"
	qb "github.com/blkn1/API-Football-Collector-sub000/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) UpsertTeams(ctx context.Context, items []team.Team) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]teamInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, teamInsertModel{
			ID:       item.ID,
			Name:     item.Name,
			Code:     nullableString(item.Code),
			Country:  nullableString(item.Country),
			Founded:  item.Founded,
			National: item.National,
			Logo:     nullableString(item.Logo),
			VenueID:  nullableInt64(item.VenueID),
		})
	}

	query, args, err := qb.InsertModels("core.teams", models, `ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    code = EXCLUDED.code,
    country = EXCLUDED.country,
    founded = EXCLUDED.founded,
    national = EXCLUDED.national,
    logo = EXCLUDED.logo,
    venue_id = EXCLUDED.venue_id,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert teams query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert teams: %w", err)
	}
	return nil
}

func (r *TeamRepository) UpsertVenues(ctx context.Context, items []team.Venue) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]venueInsertModel, 0, len(items))
	for _, item := range items {
		models = append(models, venueInsertModel{
			ID:       item.ID,
			Name:     nullableString(item.Name),
			Address:  nullableString(item.Address),
			City:     nullableString(item.City),
			Capacity: item.Capacity,
			Surface:  nullableString(item.Surface),
			Image:    nullableString(item.Image),
		})
	}

	query, args, err := qb.InsertModels("core.venues", models, `ON CONFLICT (id)
DO UPDATE SET
    name = COALESCE(EXCLUDED.name, core.venues.name),
    address = COALESCE(EXCLUDED.address, core.venues.address),
    city = COALESCE(EXCLUDED.city, core.venues.city),
    capacity = GREATEST(EXCLUDED.capacity, core.venues.capacity),
    surface = COALESCE(EXCLUDED.surface, core.venues.surface),
    image = COALESCE(EXCLUDED.image, core.venues.image),
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build upsert venues query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert venues: %w", err)
	}
	return nil
}

func (r *TeamRepository) EnsureVenueStubs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	models := make([]venueStubInsertModel, 0, len(ids))
	for _, id := range ids {
		models = append(models, venueStubInsertModel{ID: id})
	}

	query, args, err := qb.InsertModels("core.venues", models, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build venue stub query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure venue stubs: %w", err)
	}
	return nil
}

func (r *TeamRepository) ExistingTeamIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	if len(ids) == 0 {
		return map[int64]struct{}{}, nil
	}

	values := make([]any, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	query, args, err := qb.Select("id").From("core.teams").
		Where(qb.In("id", values)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build existing teams query: %w", err)
	}

	var rows []int64
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select existing teams: %w", err)
	}

	out := make(map[int64]struct{}, len(rows))
	for _, id := range rows {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *TeamRepository) StubVenueIDs(ctx context.Context, limit int) ([]int64, error) {
	query, args, err := qb.Select("id").From("core.venues").
		Where(
			qb.IsNull("capacity"),
			qb.IsNull("surface"),
		).
		OrderBy("created_at").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build stub venues query: %w", err)
	}

	var rows []int64
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select stub venues: %w", err)
	}
	return rows, nil
}

func (r *TeamRepository) CountTeams(ctx context.Context, leagueID int64, season int) (int, error) {
	query, args, err := qb.Select("COUNT(DISTINCT team_id)").
		From("(SELECT home_team_id AS team_id, league_id, season FROM core.fixtures UNION ALL SELECT away_team_id, league_id, season FROM core.fixtures) t").
		Where(qb.Eq("league_id", leagueID), qb.Eq("season", season)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count teams query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count teams league=%d season=%d: %w", leagueID, season, err)
	}
	return count, nil
}

type teamInsertModel struct {
	ID       int64         `db:"id"`
	Name     string        `db:"name"`
	Code     *string       `db:"code"`
	Country  *string       `db:"country"`
	Founded  int           `db:"founded"`
	National bool          `db:"national"`
	Logo     *string       `db:"logo"`
	VenueID  sql.NullInt64 `db:"venue_id"`
}

type venueInsertModel struct {
	ID       int64   `db:"id"`
	Name     *string `db:"name"`
	Address  *string `db:"address"`
	City     *string `db:"city"`
	Capacity int     `db:"capacity"`
	Surface  *string `db:"surface"`
	Image    *string `db:"image"`
}

type venueStubInsertModel struct {
	ID int64 `db:"id"`
}
