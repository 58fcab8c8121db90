package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/server"
	"github.com/desertthunder/removarr/internal/shared"
	"github.com/desertthunder/removarr/internal/tasks"
	"github.com/desertthunder/removarr/internal/ui"
)

// Link launches the interactive account manager.
func (r *Runner) Link(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	backend := r.newLinkBackend(st)

	openURL := shared.OpenBrowser
	if cmd.Bool("no-browser") {
		openURL = nil
	}

	p := tea.NewProgram(ui.NewModel(ctx, backend, openURL), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

const linkFailed = "failed"

// linkBackend implements [ui.Backend] directly on the local database.
type linkBackend struct {
	st      *stack
	flows   *server.FlowManager
	sweeper *tasks.Sweeper
	linker  *server.Linker
}

func (r *Runner) newLinkBackend(st *stack) *linkBackend {
	health := tasks.NewHealthTracker(st.accounts, r.logger)
	return &linkBackend{
		st:      st,
		flows:   server.NewFlowManager(st.pins, r.logger),
		sweeper: tasks.NewSweeper(st.accounts, st.cipher, st.plex, health, 0, 0, r.logger),
		linker:  r.linker(st),
	}
}

func (b *linkBackend) ListAccounts(ctx context.Context) ([]models.AccountView, error) {
	return listViews(b.st)
}

func (b *linkBackend) CheckAccount(ctx context.Context, id string) (bool, string, error) {
	acc, err := b.st.accounts.Get(id)
	if err != nil {
		return false, "", err
	}
	ok, msg := b.sweeper.Check(ctx, acc)
	return ok, msg, nil
}

func (b *linkBackend) RemoveAccount(ctx context.Context, id string) error {
	return b.st.accounts.Delete(id)
}

func (b *linkBackend) StartLink(ctx context.Context) (string, string, error) {
	flowID := shared.GenerateID()
	url, err := b.flows.Start(ctx, flowID)
	if err != nil {
		return "", "", err
	}
	return flowID, url, nil
}

// PollLink polls the flow once and stores the account when it resolves.
func (b *linkBackend) PollLink(ctx context.Context, flowID string) (ui.LinkStatus, error) {
	res := b.flows.Poll(ctx, flowID)
	switch res.Status {
	case server.FlowOK:
		acc, err := b.linker.FromFlow(ctx, res.Token)
		if err != nil {
			// The flow is consumed, so this is terminal for the UI.
			return ui.LinkStatus{State: linkFailed, Message: err.Error()}, nil
		}
		return ui.LinkStatus{State: string(server.FlowOK), Label: acc.Label()}, nil
	case server.FlowExpired:
		return ui.LinkStatus{State: string(server.FlowExpired), Message: "Login expired or unknown flow id."}, nil
	case server.FlowError:
		return ui.LinkStatus{State: string(server.FlowError), Message: "Plex login polling failed, retrying."}, nil
	default:
		return ui.LinkStatus{State: string(server.FlowPending)}, nil
	}
}
