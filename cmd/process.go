package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/removarr/internal/formatter"
	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/shared"
	"github.com/desertthunder/removarr/internal/tasks"
)

const progressBuffer = 256

// Process runs one reconciliation from the command line, as if the event had
// arrived through a webhook.
func (r *Runner) Process(ctx context.Context, cmd *cli.Command) error {
	event, err := eventFromFlags(cmd)
	if err != nil {
		return err
	}

	st, err := r.openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := tasks.NewReconciler(tasks.ReconcilerOptions{
		Accounts:    st.accounts,
		Cipher:      st.cipher,
		Plex:        st.plex,
		Library:     st.library,
		Verify:      r.config.Plex.VerifyInLibrary,
		Concurrency: r.config.Reconcile.Concurrency,
		Logger:      r.logger,
	})

	jsonOut := cmd.Bool("json")
	quiet := cmd.Bool("quiet") || jsonOut

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			if quiet || u.Phase == tasks.Completed {
				continue
			}
			r.writePlain("%s\n", u.Message)
		}
	}()

	if !quiet {
		r.writePlainHeader(fmt.Sprintf("%s (%s)", event.Title, event.YearString()))
	}
	result := engine.Process(ctx, event, progress)
	close(progress)
	<-done

	if jsonOut {
		return r.writeJSON(result, true)
	}
	if !quiet {
		r.writePlain("\n")
	}
	return r.writeBytes(formatter.ResultToText(result))
}

// eventFromFlags builds the event for [Runner.Process]. Ids must be positive integers.
func eventFromFlags(cmd *cli.Command) (models.Event, error) {
	event := models.Event{
		Title: strings.TrimSpace(cmd.String("title")),
		Year:  int(cmd.Int("year")),
	}
	if event.Title == "" {
		return event, fmt.Errorf("%w: --title", shared.ErrMissingArgument)
	}
	if event.Year < 0 {
		return event, fmt.Errorf("%w: --year must be positive", shared.ErrInvalidArgument)
	}

	switch src := models.EventSource(strings.ToLower(cmd.String("source"))); src {
	case models.SourceRadarr, models.SourceSonarr, models.SourceManual:
		event.Source = src
	default:
		return event, fmt.Errorf("%w: unknown source %q", shared.ErrInvalidArgument, src)
	}

	var err error
	if event.TMDBID, err = parseID("tmdb", cmd.String("tmdb")); err != nil {
		return event, err
	}
	if event.TVDBID, err = parseID("tvdb", cmd.String("tvdb")); err != nil {
		return event, err
	}
	return event, nil
}

func parseID(name, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("%w: --%s must be a positive integer", shared.ErrInvalidArgument, name)
	}
	return strconv.Itoa(n), nil
}
