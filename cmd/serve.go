package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/removarr/internal/server"
	"github.com/desertthunder/removarr/internal/tasks"
)

const flowPruneInterval = time.Minute

// Serve runs the HTTP server with the health sweeper and login flow pruner
// until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if r.config.Plex.VerifyInLibrary && !st.library.Configured() {
		r.logger.Warn("verify_in_library is on but no Plex server is configured; removals will not be gated")
	}

	activity := tasks.NewActivityLog(r.config.Reconcile.ActivityCapacity)
	engine := tasks.NewReconciler(tasks.ReconcilerOptions{
		Accounts:    st.accounts,
		Cipher:      st.cipher,
		Plex:        st.plex,
		Library:     st.library,
		Verify:      r.config.Plex.VerifyInLibrary,
		Activity:    activity,
		Concurrency: r.config.Reconcile.Concurrency,
		Logger:      r.logger,
	})
	health := tasks.NewHealthTracker(st.accounts, r.logger)
	sweeper := tasks.NewSweeper(st.accounts, st.cipher, st.plex, health,
		r.config.HealthInterval(), r.config.HealthInitialDelay(), r.logger)
	flows := server.NewFlowManager(st.pins, r.logger)

	srv := server.New(server.Deps{
		Config:   r.config,
		Accounts: st.accounts,
		Settings: st.settings,
		Cipher:   st.cipher,
		Plex:     st.plex,
		Engine:   engine,
		Activity: activity,
		Checker:  sweeper,
		Flows:    flows,
		Logger:   r.logger,
		Version:  r.version,
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Addr()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(gctx, addr); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		flows.RunPruner(gctx, flowPruneInterval)
		return nil
	})
	if !cmd.Bool("no-sweep") {
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	}

	err = g.Wait()
	r.logger.Info("server stopped")
	return err
}
