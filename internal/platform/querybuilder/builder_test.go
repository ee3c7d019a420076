package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("id", "status_short").
		From("fixtures").
		Where(Eq("league_id", int64(39)), IsNull("deleted_at")).
		OrderBy("kickoff_at").
		Limit(10).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT id, status_short FROM fixtures WHERE league_id = $1 AND deleted_at IS NULL ORDER BY kickoff_at LIMIT 10"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != int64(39) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("core.leagues").
		Columns("id", "name").
		Values(int64(39), "Premier League").
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO core.leagues (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != int64(39) || args[1] != "Premier League" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("core.fixtures").
		Set("status_short", "FT").
		SetExpr("updated_at", "NOW()").
		Where(Eq("id", int64(1035042))).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE core.fixtures SET status_short = $1, updated_at = NOW() WHERE id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "FT" || args[1] != int64(1035042) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("core.standings").
		Where(Eq("league_id", int64(39)), Eq("season", 2024)).
		ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}

	wantQuery := "DELETE FROM core.standings WHERE league_id = $1 AND season = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilderRequiresConditions(t *testing.T) {
	if _, _, err := DeleteFrom("core.standings").ToSQL(); err == nil {
		t.Fatal("expected error for unconditional delete")
	}
}

func TestInsertBuilderRejectsUnsafeIdentifiers(t *testing.T) {
	type row struct {
		FixtureID int64 `db:"fixture_id"`
	}

	if _, _, err := InsertModel("core.fixtures; DROP TABLE core.fixtures;--", row{FixtureID: 1}, ""); err == nil {
		t.Fatal("expected error for injection-shaped table name")
	}
	if _, _, err := InsertInto("core.fixtures").
		Columns("id) VALUES (1); DELETE FROM core.fixtures;--").
		Values(int64(1)).
		ToSQL(); err == nil {
		t.Fatal("expected error for injection-shaped column name")
	}
	if _, _, err := InsertModel("core.fixtures", row{FixtureID: 1}, ""); err != nil {
		t.Fatalf("schema-qualified table should pass: %v", err)
	}
}

func TestInsertModels(t *testing.T) {
	type row struct {
		ID   int64  `db:"id"`
		Name string `db:"name"`
	}

	query, args, err := InsertModels("core.teams", []row{
		{ID: 33, Name: "Manchester United"},
		{ID: 40, Name: "Liverpool"},
	}, "ON CONFLICT (id) DO NOTHING")
	if err != nil {
		t.Fatalf("build multi-row insert: %v", err)
	}

	wantQuery := "INSERT INTO core.teams (id, name) VALUES ($1, $2), ($3, $4) ON CONFLICT (id) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 4 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
