package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/removarr/internal/formatter"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
)

// APIGet makes a direct GET request to a running server.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Debug("GET request", "path", path)

	resp, err := r.apiClient(cmd).Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request to a running server.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	var body []byte
	if data := cmd.String("data"); data != "" {
		var jsonTest any
		if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
			return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
		}
		body = []byte(data)
	}

	r.logger.Debug("POST request", "path", path)

	resp, err := r.apiClient(cmd).Post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if !resp.OK() {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, shared.Truncate(string(resp.Body), 500))
	}
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writeBytes([]byte("\n"))
}

// Logs fetches the recent activity of a running server and renders or exports it.
func (r *Runner) Logs(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	entries, err := r.apiClient(cmd).Logs(ctx)
	if err != nil {
		return err
	}

	if cmd.IsSet("output") {
		path, err := formatter.WriteActivityExport(entries, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("activity exported", "path", path, "events", len(entries))
		r.writePlain("✓ Exported %d event(s) to %s\n", len(entries), path)
		return nil
	}

	out, err := formatter.RenderActivity(entries, format, r.now())
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}
