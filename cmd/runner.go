package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/removarr/internal/repositories"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	version    string
	api        *services.APIService
	plex       services.WatchlistService
	pins       services.PinService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Plex and Pins replace the plex.tv clients built from the config when set.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Version    string
	API        *services.APIService
	Plex       services.WatchlistService
	Pins       services.PinService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		version:    opts.Version,
		api:        opts.API,
		plex:       opts.Plex,
		pins:       opts.Pins,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        time.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, accountsCommand, linkCommand, processCommand, logsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config when it exists, then
// applies environment overrides and the configured log level.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if err := r.loadConfig(); err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (r *Runner) loadConfig() error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	r.config.ApplyEnv()
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	return nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// stack is the storage and Plex clients shared by every command that works on
// the local database.
type stack struct {
	db       *sql.DB
	accounts *repositories.AccountRepository
	settings *repositories.SettingRepository
	cipher   *shared.TokenCipher
	plex     services.WatchlistService
	library  *services.LibraryService
	pins     services.PinService
}

func (s *stack) Close() error {
	return s.db.Close()
}

// openStack opens and migrates the database and builds the Plex clients.
func (r *Runner) openStack(ctx context.Context) (*stack, error) {
	cipher, err := shared.NewTokenCipher(r.config.Security.SecretKey)
	if err != nil {
		return nil, err
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	st := &stack{
		db:       db,
		accounts: repositories.NewAccountRepository(db),
		settings: repositories.NewSettingRepository(db),
		cipher:   cipher,
	}

	info, err := r.clientInfo(ctx, st.settings)
	if err != nil {
		db.Close()
		return nil, err
	}

	timeout := r.config.RequestTimeout()
	st.plex = r.plex
	if st.plex == nil {
		st.plex = services.NewPlexService(services.PlexOptions{
			Client:            r.httpClient,
			Info:              info,
			Timeout:           timeout,
			RequestsPerSecond: r.config.Plex.RequestsPerSecond,
			Logger:            r.logger,
		})
	}
	st.pins = r.pins
	if st.pins == nil {
		st.pins = services.NewPinClient(r.httpClient, info, "", timeout)
	}
	st.library = services.NewLibraryService(r.httpClient, info, r.config.Plex.ServerURL, r.config.Plex.ServerToken, timeout, r.logger)
	return st, nil
}

// clientInfo returns the X-Plex identity. Without a configured identifier a
// uuid is generated once and kept in the settings table.
func (r *Runner) clientInfo(ctx context.Context, settings *repositories.SettingRepository) (services.ClientInfo, error) {
	info := services.ClientInfo{
		Identifier: r.config.Plex.ClientIdentifier,
		Product:    r.config.Plex.Product,
		Version:    r.version,
	}
	if info.Identifier != "" {
		return info, nil
	}

	id, ok, err := settings.Get(ctx, repositories.SettingClientIdentifier)
	if err != nil {
		return info, err
	}
	if !ok || id == "" {
		id = shared.GenerateID()
		if err := settings.Set(ctx, repositories.SettingClientIdentifier, id); err != nil {
			return info, err
		}
		r.logger.Debug("generated plex client identifier", "id", id)
	}
	info.Identifier = id
	return info, nil
}

// apiClient returns the injected API client or one built from the command's flags.
func (r *Runner) apiClient(cmd *cli.Command) *services.APIService {
	if r.api != nil {
		return r.api
	}
	token := cmd.String("token")
	if token == "" {
		token = r.config.Server.APIToken
	}
	return services.NewAPIService(cmd.String("server"), token, r.httpClient)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
