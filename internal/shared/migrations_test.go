package shared

import (
	"database/sql"
	"testing"
)

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := RunMigrations(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func appliedVersions(t *testing.T, db *sql.DB) []int {
	t.Helper()
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			t.Fatal(err)
		}
		out = append(out, v)
	}
	return out
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []string{"create_accounts", "create_settings"}
	if len(migrations) != len(want) {
		t.Fatalf("got %d migrations, want %d", len(migrations), len(want))
	}
	for i, m := range migrations {
		if m.Version != i {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.Name != want[i] {
			t.Errorf("migration %d name = %q, want %q", i, m.Name, want[i])
		}
	}
}

func TestAccountsSchema(t *testing.T) {
	db := openMigrated(t)

	insert := "INSERT INTO accounts (id, sequence, label, token_enc) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insert, "a", 1, "alice", "enc"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	t.Run("Defaults", func(t *testing.T) {
		var method, status string
		if err := db.QueryRow("SELECT auth_method, status FROM accounts WHERE id = 'a'").Scan(&method, &status); err != nil {
			t.Fatal(err)
		}
		if method != "manual" || status != "unknown" {
			t.Errorf("defaults = %q/%q", method, status)
		}
	})

	t.Run("Label Is Unique", func(t *testing.T) {
		if _, err := db.Exec(insert, "b", 2, "alice", "enc"); err == nil {
			t.Error("expected unique constraint on label")
		}
	})

	t.Run("Sequence Row Is Seeded", func(t *testing.T) {
		var value int
		if err := db.QueryRow("SELECT value FROM accounts_sequence WHERE id = 1").Scan(&value); err != nil {
			t.Fatalf("sequence row missing: %v", err)
		}
		if value != 0 {
			t.Errorf("sequence = %d, want 0", value)
		}
	})
}

func TestRunMigrationsTwice(t *testing.T) {
	db := openMigrated(t)
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := appliedVersions(t, db); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("applied versions = %v", got)
	}
}

func TestRollbackMigration(t *testing.T) {
	db := openMigrated(t)

	if err := RollbackMigration(db); err != nil {
		t.Fatalf("rollback settings: %v", err)
	}
	if _, err := db.Exec("SELECT 1 FROM settings"); err == nil {
		t.Error("settings table should be gone")
	}
	if _, err := db.Exec("SELECT 1 FROM accounts"); err != nil {
		t.Errorf("accounts table should survive: %v", err)
	}

	if err := RollbackMigration(db); err != nil {
		t.Fatalf("rollback accounts: %v", err)
	}
	if got := appliedVersions(t, db); len(got) != 0 {
		t.Errorf("expected nothing applied, got %v", got)
	}
	if err := RollbackMigration(db); err == nil {
		t.Error("expected error with nothing to roll back")
	}
}

func TestSplitStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (x INT);\n\n-- note\nINSERT INTO a VALUES (1); -- trailing\n"
	got := splitStatements(script)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x INT)" {
		t.Errorf("first statement = %q", got[0])
	}
	if got[1] != "INSERT INTO a VALUES (1)" {
		t.Errorf("second statement = %q", got[1])
	}
}
