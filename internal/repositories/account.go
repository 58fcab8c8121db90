package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/shared"
)

// maxErrorLen bounds the stored last_error message.
const maxErrorLen = 1000

// AccountRepository implements [models.Repository] for [models.LinkedAccount] persistence.
type AccountRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ models.Repository[*models.LinkedAccount] = (*AccountRepository)(nil)

// NewAccountRepository creates a new [AccountRepository] with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const accountColumns = `id, sequence, label, token_enc, auth_method, status,
	last_check_at, last_ok_at, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.LinkedAccount, error) {
	var (
		id, label, tokenEnc, method, status string
		sequence                            int
		lastCheck, lastOK                   sql.NullTime
		lastErr                             sql.NullString
		createdAt, updatedAt                time.Time
	)

	if err := row.Scan(&id, &sequence, &label, &tokenEnc, &method, &status,
		&lastCheck, &lastOK, &lastErr, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	a := models.NewLinkedAccount(label, tokenEnc, models.AuthMethod(method))
	a.SetID(id)
	a.SetSequence(sequence)
	a.SetCreatedAt(createdAt)
	a.SetUpdatedAt(updatedAt)
	a.SetHealth(models.AccountStatus(status), nullTime(lastCheck), nullTime(lastOK), lastErr.String)
	return a, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Create inserts a new account with a generated ID and sequence.
// A label already in use yields [shared.ErrDuplicateLabel].
func (r *AccountRepository) Create(account *models.LinkedAccount) error {
	account.SetID(shared.GenerateID())
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "accounts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	account.SetSequence(sequence)

	query := `
		INSERT INTO accounts (id, sequence, label, token_enc, auth_method, status,
			last_check_at, last_ok_at, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		account.ID(), sequence, account.Label(), account.TokenEnc(), string(account.AuthMethod()), string(account.Status()),
		account.LastCheckAt(), account.LastOKAt(), nullString(account.LastError()), account.CreatedAt(), account.UpdatedAt(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateLabel, account.Label())
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Get retrieves an account by ID.
func (r *AccountRepository) Get(id string) (*models.LinkedAccount, error) {
	row := r.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// GetByLabel retrieves an account by its unique label.
func (r *AccountRepository) GetByLabel(label string) (*models.LinkedAccount, error) {
	row := r.db.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE label = ?`, label)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return account, nil
}

// LabelExists reports whether label is already taken.
func (r *AccountRepository) LabelExists(label string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM accounts WHERE label = ?)`, label).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check label: %w", err)
	}
	return exists, nil
}

// Update modifies the label, token and health columns of an existing account.
func (r *AccountRepository) Update(account *models.LinkedAccount) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := r.now()
	account.SetUpdatedAt(now)

	query := `
		UPDATE accounts
		SET label = ?, token_enc = ?, status = ?, last_check_at = ?, last_ok_at = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		account.Label(), account.TokenEnc(), string(account.Status()),
		account.LastCheckAt(), account.LastOKAt(), nullString(account.LastError()), now, account.ID(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateLabel, account.Label())
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return expectOneRow(result, account.ID())
}

// Delete removes an account permanently.
func (r *AccountRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves accounts in sequence order. Supported criteria: "status" (string or [models.AccountStatus]).
func (r *AccountRepository) List(criteria map[string]any) ([]*models.LinkedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	args := []any{}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " WHERE status = ?"
			args = append(args, status)
		}
	case models.AccountStatus:
		query += " WHERE status = ?"
		args = append(args, string(status))
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.LinkedAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return accounts, nil
}

// MarkOK sets status ok, clears the last error and stamps both check and success times.
func (r *AccountRepository) MarkOK(ctx context.Context, id string) error {
	now := r.now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = ?, last_error = NULL, last_check_at = ?, last_ok_at = ?, updated_at = ?
		WHERE id = ?
	`, string(models.StatusOK), now, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark account ok: %w", err)
	}
	return expectOneRow(result, id)
}

// MarkError sets status invalid and records msg, cut to 1000 bytes on a rune boundary. last_ok_at is untouched.
func (r *AccountRepository) MarkError(ctx context.Context, id, msg string) error {
	now := r.now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = ?, last_error = ?, last_check_at = ?, updated_at = ?
		WHERE id = ?
	`, string(models.StatusInvalid), shared.Truncate(msg, maxErrorLen), now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark account error: %w", err)
	}
	return expectOneRow(result, id)
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
