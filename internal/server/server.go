package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
	"github.com/desertthunder/removarr/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that declares its own route patterns
// (e.g. "POST /webhook/radarr").
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method and path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// AccountStore is the account persistence used by the HTTP layer.
type AccountStore interface {
	Create(account *models.LinkedAccount) error
	Get(id string) (*models.LinkedAccount, error)
	LabelExists(label string) (bool, error)
	Delete(id string) error
	List(criteria map[string]any) ([]*models.LinkedAccount, error)
}

// SettingStore reads and writes string settings.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Cipher encrypts tokens at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Checker revalidates a single account.
type Checker interface {
	Check(ctx context.Context, acc *models.LinkedAccount) (bool, string)
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config   *shared.Config
	Accounts AccountStore
	Settings SettingStore
	Cipher   Cipher
	Plex     services.WatchlistService
	Engine   tasks.Engine
	Activity *tasks.ActivityLog
	Checker  Checker
	Flows    *FlowManager
	Logger   *log.Logger
	Version  string
}

// Server is the removarr HTTP service.
type Server struct {
	Deps
	router *BasicRouter
	now    func() time.Time
}

// New creates a [Server] and registers every route.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	s := &Server{Deps: deps, router: NewBasicRouter(), now: time.Now}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(Recover(s.Logger), RequestLogger(s.Logger))

	r.HandleFunc(http.MethodGet, "/health", s.handleHealth)
	r.Handler(&WebhookHandler{server: s})

	api := BearerAuth(s.Config.Server.APIToken)
	r.Handle(http.MethodGet, "/api/info", api(http.HandlerFunc(s.handleInfo)))
	r.Handle(http.MethodGet, "/api/accounts", api(http.HandlerFunc(s.handleListAccounts)))
	r.Handle(http.MethodPost, "/api/accounts", api(http.HandlerFunc(s.handleCreateAccount)))
	r.Handle(http.MethodDelete, "/api/accounts/{id}", api(http.HandlerFunc(s.handleDeleteAccount)))
	r.Handle(http.MethodPost, "/api/accounts/{id}/check", api(http.HandlerFunc(s.handleCheckAccount)))
	r.Handle(http.MethodPost, "/api/plex/oauth/start", api(http.HandlerFunc(s.handleFlowStart)))
	r.Handle(http.MethodGet, "/api/plex/oauth/status/{flow_id}", api(http.HandlerFunc(s.handleFlowStatus)))
	r.Handle(http.MethodGet, "/api/logs", api(http.HandlerFunc(s.handleLogs)))
	r.Handle(http.MethodGet, "/api/settings/webhook-token", api(http.HandlerFunc(s.handleGetWebhookToken)))
	r.Handle(http.MethodPost, "/api/settings/webhook-token/regenerate", api(http.HandlerFunc(s.handleRegenerateWebhookToken)))
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
