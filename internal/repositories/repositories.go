// package repositories stores linked accounts and runtime settings in SQLite.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// NextSequence bumps the single-row counter in <table>_sequence and returns the new value.
// Sequence numbers give accounts a stable display order independent of their UUIDs.
func NextSequence(db *sql.DB, table string) (int, error) {
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)

	var next int
	if err := db.QueryRow(query).Scan(&next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sequence row for %s is missing", table)
		}
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return next, nil
}

// isUniqueViolation reports a SQLite UNIQUE constraint failure, such as a duplicate label.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
