package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/removarr/internal/matcher"
	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
)

// AccountStore is the subset of account persistence reconciliation needs.
type AccountStore interface {
	AccountLister
	HealthStore
}

// Engine processes import events against every linked watchlist.
type Engine interface {
	// Process reconciles one event. It always returns a result; per-account
	// failures are reported in the details, never as an error.
	Process(ctx context.Context, event models.Event, progress chan<- ProgressUpdate) models.ReconciliationResult
}

// ReconcilerOptions configures a [Reconciler].
type ReconcilerOptions struct {
	Accounts AccountStore
	Cipher   Decrypter
	Plex     services.WatchlistService
	Library  services.LibraryChecker // nil disables verification
	Verify   bool
	Activity *ActivityLog
	// Concurrency bounds simultaneous account scans. Values <= 1 scan sequentially.
	Concurrency int
	Logger      *log.Logger
}

// Reconciler implements [Engine].
type Reconciler struct {
	accounts    AccountStore
	cipher      Decrypter
	plex        services.WatchlistService
	library     services.LibraryChecker
	verify      bool
	activity    *ActivityLog
	health      *HealthTracker
	concurrency int
	logger      *log.Logger
	now         func() time.Time
}

// accountOutcome is the result of scanning one account.
type accountOutcome struct {
	removed bool
	detail  string
	err     error
}

// NewReconciler creates a [Reconciler].
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	activity := opts.Activity
	if activity == nil {
		activity = NewActivityLog(DefaultActivityCapacity)
	}
	return &Reconciler{
		accounts:    opts.Accounts,
		cipher:      opts.Cipher,
		plex:        opts.Plex,
		library:     opts.Library,
		verify:      opts.Verify,
		activity:    activity,
		health:      NewHealthTracker(opts.Accounts, logger),
		concurrency: opts.Concurrency,
		logger:      shared.WithLogger(logger, "component", "reconciler"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Activity returns the log the reconciler appends to.
func (r *Reconciler) Activity() *ActivityLog {
	return r.activity
}

// Process reconciles event against all linked accounts and appends one activity record.
func (r *Reconciler) Process(ctx context.Context, event models.Event, progress chan<- ProgressUpdate) models.ReconciliationResult {
	result := r.process(ctx, event, progress)
	r.activity.Add(models.NewActivityEntry(r.now(), event, result))
	sendProgress(progress, completedUpdate(result))

	r.logger.Info("processed event",
		"source", event.Source,
		"title", event.Title,
		"year", event.YearString(),
		"removed", result.Removed,
		"scanned", result.ScannedAccounts,
	)
	return result
}

func (r *Reconciler) process(ctx context.Context, event models.Event, progress chan<- ProgressUpdate) models.ReconciliationResult {
	result := models.ReconciliationResult{Details: []string{}}
	target := event.Target()

	accounts, err := r.accounts.List(nil)
	if err != nil {
		r.logger.Error("failed to load accounts", "err", err)
		result.Details = append(result.Details, fmt.Sprintf("ERROR: failed to load accounts: %v", err))
		return result
	}
	sendProgress(progress, loadAccountsUpdate(len(accounts)))

	if r.verify {
		if r.library == nil {
			r.logger.Warn("library verification enabled without a configured library; proceeding", "err", shared.ErrConfigurationGap)
		} else {
			sendProgress(progress, verifyLibraryUpdate(event))
			if !r.library.Available(ctx, target) {
				result.ScannedAccounts = len(accounts)
				result.Details = append(result.Details,
					fmt.Sprintf("Skipped: not found in Plex library (verify enabled) for %s (%s)", event.Title, event.YearString()))
				return result
			}
		}
	}

	outcomes := make([]accountOutcome, len(accounts))
	scan := func(i int) {
		outcomes[i] = r.scanAccount(ctx, accounts[i], target)
		sendProgress(progress, scanAccountUpdate(i+1, len(accounts), outcomes[i].detail))
	}

	if r.concurrency > 1 {
		var g errgroup.Group
		g.SetLimit(r.concurrency)
		for i := range accounts {
			g.Go(func() error {
				scan(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range accounts {
			scan(i)
		}
	}

	var expired []string
	for i, o := range outcomes {
		result.ScannedAccounts++
		if o.removed {
			result.Removed++
		}
		if errors.Is(o.err, shared.ErrAuthExpired) {
			expired = append(expired, accounts[i].Label())
		}
		result.Details = append(result.Details, o.detail)
	}
	if len(expired) > 0 {
		r.logger.Warn("accounts need relinking", "accounts", expired)
	}
	return result
}

// scanAccount fetches, matches and removes for one account. Every failure is
// captured in the returned detail.
func (r *Reconciler) scanAccount(ctx context.Context, acc *models.LinkedAccount, target models.TargetItem) accountOutcome {
	label := acc.Label()
	logger := r.logger.With("account", label)

	fail := func(err error) accountOutcome {
		msg := err.Error()
		if shared.IsAuthFailure(msg) {
			r.health.MarkError(ctx, acc.ID(), msg)
			err = fmt.Errorf("%w: %w", shared.ErrAuthExpired, err)
		}
		logger.Warn("account scan failed", "err", err)
		return accountOutcome{detail: fmt.Sprintf("[%s] ERROR: %s", label, msg), err: err}
	}

	token, err := r.cipher.Decrypt(acc.TokenEnc())
	if err != nil {
		return fail(err)
	}

	entries, err := r.plex.Watchlist(ctx, token)
	if err != nil {
		return fail(err)
	}
	r.health.MarkOK(ctx, acc.ID())

	entry, outcome := matcher.Match(target, entries)
	if !outcome.Matched() {
		logger.Debug("no watchlist match", "entries", len(entries))
		return accountOutcome{detail: fmt.Sprintf("[%s] %s", label, outcome.Describe())}
	}

	if err := r.plex.RemoveFromWatchlist(ctx, token, entry.RatingKey); err != nil {
		return fail(err)
	}
	logger.Info("removed from watchlist", "rating_key", entry.RatingKey, "match", outcome.Kind)
	return accountOutcome{removed: true, detail: fmt.Sprintf("[%s] %s", label, outcome.Describe())}
}
