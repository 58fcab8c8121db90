package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/removarr/internal/formatter"
	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/server"
	"github.com/desertthunder/removarr/internal/shared"
	"github.com/desertthunder/removarr/internal/tasks"
)

// AccountsList prints every linked account with its health.
func (r *Runner) AccountsList(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	views, err := listViews(st)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, true)
	}
	return r.writeBytes(formatter.AccountsToText(views, r.now()))
}

func listViews(st *stack) ([]models.AccountView, error) {
	accounts, err := st.accounts.List(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	views := make([]models.AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, a.View())
	}
	return views, nil
}

// AccountsAdd validates a pasted token and links it under --label.
func (r *Runner) AccountsAdd(ctx context.Context, cmd *cli.Command) error {
	label := strings.TrimSpace(cmd.String("label"))
	token := strings.TrimSpace(cmd.String("token"))
	if label == "" || token == "" {
		return fmt.Errorf("%w: --label and --token are required", shared.ErrMissingArgument)
	}

	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	acc, err := r.linker(st).Manual(ctx, label, token)
	if err != nil {
		return fmt.Errorf("failed to add account: %w", err)
	}

	r.writePlain("✓ Linked %s (%s)\n", acc.Label(), acc.ID())
	return nil
}

func (r *Runner) linker(st *stack) *server.Linker {
	return &server.Linker{
		Accounts: st.accounts,
		Cipher:   st.cipher,
		Plex:     st.plex,
		Logger:   r.logger,
		Now:      r.now,
	}
}

// resolveAccount finds an account by id, falling back to its label.
func resolveAccount(st *stack, ref string) (*models.LinkedAccount, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: account id or label", shared.ErrMissingArgument)
	}
	acc, err := st.accounts.Get(ref)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, shared.ErrAccountNotFound) {
		return nil, err
	}
	return st.accounts.GetByLabel(ref)
}

// AccountsRemove unlinks an account by id or label.
func (r *Runner) AccountsRemove(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	acc, err := resolveAccount(st, cmd.StringArg("account"))
	if err != nil {
		return err
	}
	if err := st.accounts.Delete(acc.ID()); err != nil {
		return err
	}

	r.logger.Info("account removed", "label", acc.Label())
	r.writePlain("✓ Removed %s\n", acc.Label())
	return nil
}

// checkReport is the JSON shape of [Runner.AccountsCheck].
type checkReport struct {
	Checked  int                  `json:"checked"`
	OK       int                  `json:"ok"`
	Invalid  int                  `json:"invalid"`
	Accounts []models.AccountView `json:"accounts"`
}

// AccountsCheck revalidates the named account, or every account when none is given.
func (r *Runner) AccountsCheck(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	health := tasks.NewHealthTracker(st.accounts, r.logger)
	sweeper := tasks.NewSweeper(st.accounts, st.cipher, st.plex, health, 0, 0, r.logger)
	jsonOut := cmd.Bool("json")

	var res tasks.SweepResult
	if ref := cmd.StringArg("account"); ref != "" {
		acc, err := resolveAccount(st, ref)
		if err != nil {
			return err
		}
		ok, msg := sweeper.Check(ctx, acc)
		res.Checked = 1
		if ok {
			res.OK = 1
		} else {
			res.Invalid = 1
		}
		if !jsonOut {
			r.writePlain("%s %s: %s\n", checkMark(ok), acc.Label(), msg)
		}
	} else {
		progress := make(chan tasks.ProgressUpdate, progressBuffer)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for u := range progress {
				if !jsonOut {
					r.writePlain("%s\n", u.Message)
				}
			}
		}()

		res, err = sweeper.SweepOnce(ctx, progress)
		close(progress)
		<-done
		if err != nil {
			return err
		}
	}

	views, err := listViews(st)
	if err != nil {
		return err
	}
	if jsonOut {
		return r.writeJSON(checkReport{
			Checked:  res.Checked,
			OK:       res.OK,
			Invalid:  res.Invalid,
			Accounts: views,
		}, true)
	}

	r.writePlain("\nChecked %d: %d ok, %d invalid\n\n", res.Checked, res.OK, res.Invalid)
	return r.writeBytes(formatter.AccountsToText(views, r.now()))
}

func checkMark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
