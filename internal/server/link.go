package server

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
)

// DefaultFlowLabel names an account whose Plex username could not be read.
const DefaultFlowLabel = "PlexUser"

// Linker persists freshly validated Plex tokens as linked accounts.
// It backs both the HTTP API and the interactive CLI login.
type Linker struct {
	Accounts AccountStore
	Cipher   Cipher
	Plex     services.WatchlistService
	Logger   *log.Logger
	Now      func() time.Time
}

func (l *Linker) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

// Store encrypts token and creates the account in status ok.
// The caller is expected to have validated token already.
func (l *Linker) Store(label, token string, method models.AuthMethod) (*models.LinkedAccount, error) {
	enc, err := l.Cipher.Encrypt(token)
	if err != nil {
		return nil, err
	}
	acc := models.NewLinkedAccount(label, enc, method)
	acc.MarkOK(l.now())
	if err := l.Accounts.Create(acc); err != nil {
		return nil, err
	}
	if l.Logger != nil {
		l.Logger.Info("account linked", "label", acc.Label(), "method", acc.AuthMethod())
	}
	return acc, nil
}

// FromFlow validates a token issued by a login flow and stores it labelled
// with the Plex username, suffixed with the current unix time on collision.
func (l *Linker) FromFlow(ctx context.Context, token string) (*models.LinkedAccount, error) {
	ok, msg := l.Plex.ValidateToken(ctx, token)
	if !ok {
		return nil, fmt.Errorf("%w: token received but validation failed: %s", shared.ErrValidationFailure, msg)
	}

	label := msg
	if label == "" {
		label = DefaultFlowLabel
	}
	exists, err := l.Accounts.LabelExists(label)
	if err != nil {
		return nil, err
	}
	if exists {
		label = fmt.Sprintf("%s-%d", label, l.now().Unix())
	}
	return l.Store(label, token, models.AuthOAuth)
}

// Manual validates a pasted token and stores it under label.
// Validation failures wrap [shared.ErrValidationFailure].
func (l *Linker) Manual(ctx context.Context, label, token string) (*models.LinkedAccount, error) {
	ok, msg := l.Plex.ValidateToken(ctx, token)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidationFailure, msg)
	}
	return l.Store(label, token, models.AuthManual)
}
