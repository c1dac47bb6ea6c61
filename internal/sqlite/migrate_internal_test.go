package sqlite

import (
	"testing"

	"github.com/myrjola/rexcoach/internal/testhelpers"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := connect(t.Context(), ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close: %v", closeErr)
		}
	})
	return db
}

func TestDatabase_migrate(t *testing.T) {
	t.Parallel()
	const (
		plans        = "CREATE TABLE plans (id TEXT PRIMARY KEY, name TEXT)"
		plansNoName  = "CREATE TABLE plans (id TEXT PRIMARY KEY)"
		nameIndex    = "; CREATE INDEX plans_name ON plans (name)"
		rejectInsert = "; CREATE TRIGGER plans_guard AFTER INSERT ON plans BEGIN SELECT RAISE (FAIL, 'read only'); END"
		allowInsert  = "; CREATE TRIGGER plans_guard AFTER INSERT ON plans BEGIN SELECT 1; END"
		insertPlan   = "INSERT INTO plans (id, name) VALUES ('plan-1', 'Starter')"
		dropIndex    = "DROP INDEX plans_name"
	)
	tests := []struct {
		name  string
		steps []string
		query string
		fails bool
	}{
		{name: "empty schema", steps: []string{""}, query: "SELECT * FROM sqlite_schema", fails: false},
		{name: "create table", steps: []string{plans}, query: insertPlan, fails: false},
		{name: "drop table", steps: []string{plans, ""}, query: insertPlan, fails: true},
		{name: "add column", steps: []string{plansNoName, plans}, query: insertPlan, fails: false},
		{name: "remove column", steps: []string{plans, plansNoName}, query: insertPlan, fails: true},
		{name: "create index", steps: []string{plans + nameIndex}, query: dropIndex, fails: false},
		{name: "drop index", steps: []string{plans + nameIndex, plans}, query: dropIndex, fails: true},
		{
			name:  "update index",
			steps: []string{plans + nameIndex, plans + "; CREATE INDEX plans_name ON plans (id, name)"},
			query: dropIndex,
			fails: false,
		},
		{name: "create trigger", steps: []string{plans + rejectInsert}, query: insertPlan, fails: true},
		{name: "drop trigger", steps: []string{plans + rejectInsert, plans}, query: insertPlan, fails: false},
		{name: "update trigger", steps: []string{plans + rejectInsert, plans + allowInsert}, query: insertPlan, fails: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			db := newTestDatabase(t)
			for i, step := range tt.steps {
				if err := db.migrateTo(ctx, step); err != nil {
					t.Fatalf("migration %d: %v", i, err)
				}
			}
			_, err := db.ReadWrite.ExecContext(ctx, tt.query)
			if tt.fails != (err != nil) {
				t.Errorf("%q: err = %v, want failure %t", tt.query, err, tt.fails)
			}
		})
	}
}

func TestDatabase_migratePreservesData(t *testing.T) {
	ctx := t.Context()
	db := newTestDatabase(t)

	if err := db.migrateTo(ctx, "CREATE TABLE athletes (id INTEGER PRIMARY KEY, name TEXT, legacy TEXT)"); err != nil {
		t.Fatalf("initial migration: %v", err)
	}
	if _, err := db.ReadWrite.ExecContext(ctx,
		"INSERT INTO athletes (id, name, legacy) VALUES (1, 'Alex', 'dropped')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.migrateTo(ctx,
		"CREATE TABLE athletes (id INTEGER PRIMARY KEY, name TEXT NOT NULL, goal TEXT NOT NULL DEFAULT 'none')"); err != nil {
		t.Fatalf("second migration: %v", err)
	}

	var name, goal string
	if err := db.ReadOnly.QueryRowContext(ctx, "SELECT name, goal FROM athletes WHERE id = 1").Scan(&name, &goal); err != nil {
		t.Fatalf("select: %v", err)
	}
	if name != "Alex" || goal != "none" {
		t.Errorf("got name %q goal %q, want Alex and none", name, goal)
	}
}
