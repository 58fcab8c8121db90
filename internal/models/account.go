package models

import (
	"fmt"
	"strings"
	"time"
)

// AuthMethod records how an account was linked.
type AuthMethod string

const (
	AuthManual AuthMethod = "manual"
	AuthOAuth  AuthMethod = "oauth"
)

// AccountStatus is the health state of a linked account.
type AccountStatus string

const (
	StatusUnknown AccountStatus = "unknown"
	StatusOK      AccountStatus = "ok"
	StatusInvalid AccountStatus = "invalid"
)

// LinkedAccount is one user's connection to Plex. The token is stored encrypted
// and only decrypted at the point of use.
type LinkedAccount struct {
	id          string
	sequence    int
	label       string
	tokenEnc    string
	authMethod  AuthMethod
	status      AccountStatus
	lastCheckAt *time.Time
	lastOKAt    *time.Time
	lastError   string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewLinkedAccount creates an account in the unknown state.
func NewLinkedAccount(label, tokenEnc string, method AuthMethod) *LinkedAccount {
	now := time.Now().UTC()
	return &LinkedAccount{
		label:      strings.TrimSpace(label),
		tokenEnc:   tokenEnc,
		authMethod: method,
		status:     StatusUnknown,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (a *LinkedAccount) ID() string                { return a.id }
func (a *LinkedAccount) Sequence() int             { return a.sequence }
func (a *LinkedAccount) Label() string             { return a.label }
func (a *LinkedAccount) TokenEnc() string          { return a.tokenEnc }
func (a *LinkedAccount) AuthMethod() AuthMethod    { return a.authMethod }
func (a *LinkedAccount) Status() AccountStatus     { return a.status }
func (a *LinkedAccount) LastCheckAt() *time.Time   { return a.lastCheckAt }
func (a *LinkedAccount) LastOKAt() *time.Time      { return a.lastOKAt }
func (a *LinkedAccount) LastError() string         { return a.lastError }
func (a *LinkedAccount) CreatedAt() time.Time      { return a.createdAt }
func (a *LinkedAccount) UpdatedAt() time.Time      { return a.updatedAt }
func (a *LinkedAccount) SetID(id string)           { a.id = id }
func (a *LinkedAccount) SetSequence(seq int)       { a.sequence = seq }
func (a *LinkedAccount) SetLabel(label string)     { a.label = strings.TrimSpace(label) }
func (a *LinkedAccount) SetTokenEnc(enc string)    { a.tokenEnc = enc }
func (a *LinkedAccount) SetCreatedAt(t time.Time)  { a.createdAt = t }
func (a *LinkedAccount) SetUpdatedAt(t time.Time)  { a.updatedAt = t }
func (a *LinkedAccount) SetStatus(s AccountStatus) { a.status = s }

// SetHealth restores the persisted health columns.
func (a *LinkedAccount) SetHealth(status AccountStatus, lastCheck, lastOK *time.Time, lastErr string) {
	a.status = status
	a.lastCheckAt = lastCheck
	a.lastOKAt = lastOK
	a.lastError = lastErr
}

// MarkOK records a successful check at t.
func (a *LinkedAccount) MarkOK(t time.Time) {
	a.status = StatusOK
	a.lastError = ""
	a.lastCheckAt = &t
	a.lastOKAt = &t
	a.updatedAt = t
}

// MarkError records a failed check at t. The success timestamp is untouched.
func (a *LinkedAccount) MarkError(t time.Time, msg string) {
	a.status = StatusInvalid
	a.lastError = msg
	a.lastCheckAt = &t
	a.updatedAt = t
}

// Validate checks the fields required before persisting.
func (a *LinkedAccount) Validate() error {
	if a.id == "" {
		return fmt.Errorf("account id is required")
	}
	if a.label == "" {
		return fmt.Errorf("account label is required")
	}
	if a.tokenEnc == "" {
		return fmt.Errorf("account token is required")
	}
	switch a.authMethod {
	case AuthManual, AuthOAuth:
	default:
		return fmt.Errorf("invalid auth method %q", a.authMethod)
	}
	switch a.status {
	case StatusUnknown, StatusOK, StatusInvalid:
	default:
		return fmt.Errorf("invalid status %q", a.status)
	}
	return nil
}

// AccountView is the JSON shape of an account. It never carries the token.
type AccountView struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	AuthMethod  AuthMethod    `json:"auth_method"`
	Status      AccountStatus `json:"status"`
	LastCheckAt *time.Time    `json:"last_check_at"`
	LastOKAt    *time.Time    `json:"last_ok_at"`
	LastError   string        `json:"last_error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// View returns the public representation of a.
func (a *LinkedAccount) View() AccountView {
	return AccountView{
		ID:          a.id,
		Label:       a.label,
		AuthMethod:  a.authMethod,
		Status:      a.status,
		LastCheckAt: a.lastCheckAt,
		LastOKAt:    a.lastOKAt,
		LastError:   a.lastError,
		CreatedAt:   a.createdAt,
	}
}
