package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
)

// HealthStore persists account health transitions.
type HealthStore interface {
	MarkOK(ctx context.Context, id string) error
	MarkError(ctx context.Context, id, msg string) error
}

// AccountLister loads linked accounts in listing order.
type AccountLister interface {
	List(criteria map[string]any) ([]*models.LinkedAccount, error)
}

// Decrypter recovers a plaintext token from its stored form.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// HealthTracker records per-account status. Store failures are logged, not returned,
// so a health write never changes the outcome of the operation that triggered it.
type HealthTracker struct {
	store  HealthStore
	logger *log.Logger
}

// NewHealthTracker creates a [HealthTracker].
func NewHealthTracker(store HealthStore, logger *log.Logger) *HealthTracker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &HealthTracker{store: store, logger: logger}
}

// MarkOK sets the account ok and clears its last error.
func (h *HealthTracker) MarkOK(ctx context.Context, id string) {
	if err := h.store.MarkOK(ctx, id); err != nil {
		h.logger.Error("failed to record account health", "account", id, "status", models.StatusOK, "err", err)
	}
}

// MarkError sets the account invalid and records msg, cut to 1000 bytes on a rune boundary.
func (h *HealthTracker) MarkError(ctx context.Context, id, msg string) {
	if err := h.store.MarkError(ctx, id, msg); err != nil {
		h.logger.Error("failed to record account health", "account", id, "status", models.StatusInvalid, "err", err)
		return
	}
	h.logger.Warn("account marked invalid", "account", id, "err", msg)
}

// SweepResult summarizes one revalidation pass.
type SweepResult struct {
	Checked int
	OK      int
	Invalid int
}

// Sweeper revalidates every account's token on a fixed schedule.
type Sweeper struct {
	accounts     AccountLister
	cipher       Decrypter
	plex         services.WatchlistService
	health       *HealthTracker
	interval     time.Duration
	initialDelay time.Duration
	logger       *log.Logger
}

// NewSweeper creates a [Sweeper]. Non-positive interval defaults to 24h.
func NewSweeper(accounts AccountLister, cipher Decrypter, plex services.WatchlistService, health *HealthTracker, interval, initialDelay time.Duration, logger *log.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Sweeper{
		accounts:     accounts,
		cipher:       cipher,
		plex:         plex,
		health:       health,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       shared.WithLogger(logger, "component", "sweeper"),
	}
}

// Run waits the initial delay, sweeps, then sweeps again every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("health sweep scheduled", "initial_delay", s.initialDelay, "interval", s.interval)

	delay := time.NewTimer(s.initialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-delay.C:
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx, nil); err != nil {
			s.logger.Error("health sweep failed", "err", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("health sweep stopped")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce revalidates every account once.
func (s *Sweeper) SweepOnce(ctx context.Context, progress chan<- ProgressUpdate) (SweepResult, error) {
	accounts, err := s.accounts.List(nil)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to load accounts: %w", err)
	}

	var res SweepResult
	for i, acc := range accounts {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		ok, msg := s.Check(ctx, acc)
		res.Checked++
		if ok {
			res.OK++
		} else {
			res.Invalid++
		}
		sendProgress(progress, sweepAccountUpdate(i+1, len(accounts), acc.Label(), ok, msg))
	}

	s.logger.Info("health sweep complete", "checked", res.Checked, "ok", res.OK, "invalid", res.Invalid)
	return res, nil
}

// Check revalidates one account and records the outcome.
func (s *Sweeper) Check(ctx context.Context, acc *models.LinkedAccount) (bool, string) {
	token, err := s.cipher.Decrypt(acc.TokenEnc())
	if err != nil {
		s.health.MarkError(ctx, acc.ID(), err.Error())
		return false, err.Error()
	}

	ok, msg := s.plex.ValidateToken(ctx, token)
	if ok {
		s.health.MarkOK(ctx, acc.ID())
	} else {
		s.health.MarkError(ctx, acc.ID(), msg)
	}
	return ok, msg
}
