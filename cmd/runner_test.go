package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/services"
	"github.com/desertthunder/removarr/internal/shared"
	tu "github.com/desertthunder/removarr/internal/testing"
)

// fakePins authorizes every pin with a fixed token on the second check.
type fakePins struct {
	mu     sync.Mutex
	next   int64
	checks map[int64]int
	token  string
}

func (p *fakePins) RequestPin(ctx context.Context) (*services.Pin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return &services.Pin{ID: p.next, Code: "CODE"}, nil
}

func (p *fakePins) CheckPin(ctx context.Context, id int64) (*services.PinStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks[id]++
	if p.checks[id] < 2 {
		return &services.PinStatus{}, nil
	}
	return &services.PinStatus{Authorized: true, Token: p.token}, nil
}

func (p *fakePins) AuthURL(pin *services.Pin) string {
	return "https://app.plex.tv/auth#?code=" + pin.Code
}

type testEnv struct {
	runner *Runner
	output *bytes.Buffer
	plex   *tu.MockWatchlist
	pins   *fakePins
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "data", "removarr.db")
	config.Security.SecretKey = "test-secret"
	config.Plex.ClientIdentifier = "test-client"
	config.Log.Level = "error"

	env := &testEnv{
		output: &bytes.Buffer{},
		plex:   tu.NewMockWatchlist(),
		pins:   &fakePins{checks: map[int64]int{}, token: "tok-flow"},
		dir:    dir,
	}
	env.runner = NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: filepath.Join(dir, "missing.toml"),
		Logger:     shared.NewLogger(&bytes.Buffer{}),
		Output:     env.output,
		Plex:       env.plex,
		Pins:       env.pins,
	})
	env.runner.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return env
}

// run executes args against a fresh app and returns what was written.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	e.output.Reset()
	app := newApp(e.runner)
	argv := append([]string{"removarr", "--config", e.runner.configPath}, args...)
	err := app.Run(context.Background(), argv)
	return e.output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			plex := tu.NewMockWatchlist()
			api := services.NewAPIService("", "", nil)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Plex:       plex,
				API:        api,
				Version:    "1.2.3",
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.plex != plex {
				t.Error("expected plex to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.version != "1.2.3" {
				t.Errorf("expected version to be set, got %s", runner.version)
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", output.String())
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "serve", "accounts", "link", "process", "logs", "api"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("reads the file and applies env overrides", func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatal(err)
			}
			t.Setenv("REMOVARR_DB_PATH", filepath.Join(dir, "env.db"))

			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(&bytes.Buffer{})})
			if err := runner.loadConfig(); err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if runner.config.Database.Path != filepath.Join(dir, "env.db") {
				t.Errorf("expected env override, got %s", runner.config.Database.Path)
			}
			if runner.config.Server.Port != 8787 {
				t.Errorf("expected port from file, got %d", runner.config.Server.Port)
			}
		})

		t.Run("rejects a malformed file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server\nport = "), 0o600); err != nil {
				t.Fatal(err)
			}
			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(&bytes.Buffer{})})
			if err := runner.loadConfig(); err == nil {
				t.Error("expected parse error")
			}
		})
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("database", func(t *testing.T) {
		env := newTestEnv(t)

		out, err := env.run(t, "setup", "database")
		if err != nil {
			t.Fatalf("setup database: %v", err)
		}
		tu.AssertDirExists(t, filepath.Join(env.dir, "data"))
		tu.AssertFileExists(t, env.runner.config.Database.Path)
		if !strings.Contains(out, "Database ready") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("config", func(t *testing.T) {
		env := newTestEnv(t)

		out, err := env.run(t, "setup", "config")
		if err != nil {
			t.Fatalf("setup config: %v", err)
		}
		tu.AssertFileExists(t, env.runner.configPath)
		if !strings.Contains(out, "security.secret_key") {
			t.Errorf("expected a suggested secret, got %q", out)
		}

		if _, err := env.run(t, "setup", "config"); err == nil {
			t.Error("expected an error when the config already exists")
		}
	})
}

func TestAccountsCommands(t *testing.T) {
	env := newTestEnv(t)
	env.plex.Labels["tok-alice"] = "alice"

	t.Run("add validates the token first", func(t *testing.T) {
		_, err := env.run(t, "accounts", "add", "--label", "bob", "--token", "tok-bad")
		if !errors.Is(err, shared.ErrValidationFailure) {
			t.Fatalf("expected validation failure, got %v", err)
		}
	})

	t.Run("add", func(t *testing.T) {
		out, err := env.run(t, "accounts", "add", "--label", "alice", "--token", "tok-alice")
		if err != nil {
			t.Fatalf("accounts add: %v", err)
		}
		if !strings.Contains(out, "Linked alice") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("add rejects a duplicate label", func(t *testing.T) {
		_, err := env.run(t, "accounts", "add", "--label", "alice", "--token", "tok-alice")
		if !errors.Is(err, shared.ErrDuplicateLabel) {
			t.Fatalf("expected duplicate label error, got %v", err)
		}
	})

	t.Run("list", func(t *testing.T) {
		out, err := env.run(t, "accounts", "list")
		if err != nil {
			t.Fatalf("accounts list: %v", err)
		}
		if !strings.Contains(out, "alice") || !strings.Contains(out, "manual") {
			t.Errorf("unexpected table: %q", out)
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		out, err := env.run(t, "accounts", "list", "--json")
		if err != nil {
			t.Fatalf("accounts list: %v", err)
		}
		var views []models.AccountView
		if err := json.Unmarshal([]byte(out), &views); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(views) != 1 || views[0].Label != "alice" || views[0].Status != models.StatusOK {
			t.Errorf("unexpected accounts: %+v", views)
		}
	})

	t.Run("check marks a revoked token invalid", func(t *testing.T) {
		delete(env.plex.Labels, "tok-alice")

		out, err := env.run(t, "accounts", "check", "--json")
		if err != nil {
			t.Fatalf("accounts check: %v", err)
		}
		var report checkReport
		if err := json.Unmarshal([]byte(out), &report); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if report.Checked != 1 || report.Invalid != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
		if report.Accounts[0].Status != models.StatusInvalid {
			t.Errorf("expected invalid status, got %s", report.Accounts[0].Status)
		}
	})

	t.Run("check one account by label", func(t *testing.T) {
		env.plex.Labels["tok-alice"] = "alice"

		out, err := env.run(t, "accounts", "check", "alice")
		if err != nil {
			t.Fatalf("accounts check: %v", err)
		}
		if !strings.Contains(out, "✓ alice") || !strings.Contains(out, "1 ok, 0 invalid") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("remove unknown account", func(t *testing.T) {
		_, err := env.run(t, "accounts", "remove", "nobody")
		if !errors.Is(err, shared.ErrAccountNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("remove by label", func(t *testing.T) {
		out, err := env.run(t, "accounts", "remove", "alice")
		if err != nil {
			t.Fatalf("accounts remove: %v", err)
		}
		if !strings.Contains(out, "Removed alice") {
			t.Errorf("unexpected output: %q", out)
		}

		out, _ = env.run(t, "accounts", "list")
		if !strings.Contains(out, "No linked accounts.") {
			t.Errorf("expected empty list, got %q", out)
		}
	})
}

func TestProcessCommand(t *testing.T) {
	env := newTestEnv(t)
	env.plex.Labels["tok-alice"] = "alice"
	env.plex.Entries["tok-alice"] = []models.WatchlistEntry{
		{RatingKey: "rk-1", Title: "Arrival", Year: 2016, IDs: models.IDs{models.ProviderTMDB: "329865"}},
	}
	if _, err := env.run(t, "accounts", "add", "--label", "alice", "--token", "tok-alice"); err != nil {
		t.Fatalf("accounts add: %v", err)
	}

	t.Run("rejects a non-numeric id", func(t *testing.T) {
		_, err := env.run(t, "process", "--title", "Arrival", "--tmdb", "abc")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	})

	t.Run("rejects an unknown source", func(t *testing.T) {
		_, err := env.run(t, "process", "--title", "Arrival", "--source", "lidarr")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	})

	t.Run("removes a matching entry", func(t *testing.T) {
		out, err := env.run(t, "process", "--title", "Arrival", "--year", "2016", "--tmdb", "329865", "--source", "radarr")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if !strings.Contains(out, "Removed: 1  Scanned accounts: 1") {
			t.Errorf("unexpected output: %q", out)
		}
		if !strings.Contains(out, "Arrival (2016)") {
			t.Errorf("expected a header, got %q", out)
		}
		if got := env.plex.RemovedKeys(); len(got) != 1 || got[0] != "tok-alice/rk-1" {
			t.Errorf("unexpected removals: %v", got)
		}
	})

	t.Run("JSON output", func(t *testing.T) {
		out, err := env.run(t, "process", "--title", "Dune", "--json")
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		var result models.ReconciliationResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if result.Removed != 0 || result.ScannedAccounts != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
	})
}

func TestServerClientCommands(t *testing.T) {
	entries := []models.ActivityEntry{{
		Timestamp:       time.Unix(1700000000, 0).UTC(),
		Source:          models.SourceRadarr,
		Title:           "Arrival",
		Year:            2016,
		TMDBID:          "329865",
		Removed:         1,
		ScannedAccounts: 2,
		Details:         []string{"[alice] Removed (matched by TMDB id)"},
	}}

	var authHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/logs":
			_ = json.NewEncoder(w).Encode(map[string]any{"items": entries})
		case "/api/info":
			_, _ = w.Write([]byte(`{"version":"test"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		}
	}))
	defer ts.Close()

	t.Run("logs as text", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, "logs", "--server", ts.URL, "--token", "secret")
		if err != nil {
			t.Fatalf("logs: %v", err)
		}
		if authHeader != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", authHeader)
		}
		if !strings.Contains(out, "[radarr] Arrival (2016)  removed 1/2") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("logs default to the configured api token", func(t *testing.T) {
		env := newTestEnv(t)
		env.runner.config.Server.APIToken = "from-config"
		if _, err := env.run(t, "logs", "--server", ts.URL); err != nil {
			t.Fatalf("logs: %v", err)
		}
		if authHeader != "Bearer from-config" {
			t.Errorf("expected config token, got %q", authHeader)
		}
	})

	t.Run("logs export to file", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(env.dir, "activity.csv")

		out, err := env.run(t, "logs", "--server", ts.URL, "--format", "csv", "--output", path)
		if err != nil {
			t.Fatalf("logs: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Arrival") {
			t.Error("expected the export to contain the entry")
		}
		if !strings.Contains(out, "Exported 1 event(s)") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("logs rejects an unknown format", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.run(t, "logs", "--server", ts.URL, "--format", "xml"); err == nil {
			t.Error("expected format error")
		}
	})

	t.Run("api get", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.run(t, "api", "get", "--server", ts.URL, "--json", "/api/info")
		if err != nil {
			t.Fatalf("api get: %v", err)
		}
		if strings.TrimSpace(out) != `{"version":"test"}` {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("api get non-2xx", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.run(t, "api", "get", "--server", ts.URL, "/api/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected API error, got %v", err)
		}
	})

	t.Run("api post rejects invalid JSON", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.run(t, "api", "post", "--server", ts.URL, "--data", "{nope", "/api/info")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})
}

func TestLinkBackend(t *testing.T) {
	env := newTestEnv(t)
	env.plex.Labels["tok-flow"] = "plexuser"

	st, err := env.runner.openStack(context.Background())
	if err != nil {
		t.Fatalf("openStack: %v", err)
	}
	defer st.Close()
	backend := env.runner.newLinkBackend(st)
	ctx := context.Background()

	flowID, url, err := backend.StartLink(ctx)
	if err != nil {
		t.Fatalf("StartLink: %v", err)
	}
	if flowID == "" || !strings.Contains(url, "code=CODE") {
		t.Fatalf("unexpected flow %q %q", flowID, url)
	}

	status, err := backend.PollLink(ctx, flowID)
	if err != nil || status.State != "pending" {
		t.Fatalf("expected pending, got %+v %v", status, err)
	}

	status, err = backend.PollLink(ctx, flowID)
	if err != nil || status.State != "ok" || status.Label != "plexuser" {
		t.Fatalf("expected ok for plexuser, got %+v %v", status, err)
	}

	status, _ = backend.PollLink(ctx, flowID)
	if status.State != "expired" {
		t.Errorf("a resolved flow should read as expired, got %+v", status)
	}

	accounts, err := backend.ListAccounts(ctx)
	if err != nil || len(accounts) != 1 {
		t.Fatalf("expected one account, got %v %v", accounts, err)
	}
	if accounts[0].AuthMethod != models.AuthOAuth {
		t.Errorf("expected oauth account, got %s", accounts[0].AuthMethod)
	}

	t.Run("second login with the same username gets a suffix", func(t *testing.T) {
		flowID, _, err := backend.StartLink(ctx)
		if err != nil {
			t.Fatal(err)
		}
		backend.PollLink(ctx, flowID)
		status, _ := backend.PollLink(ctx, flowID)
		if status.Label != "plexuser-1700000000" {
			t.Errorf("expected suffixed label, got %+v", status)
		}
	})

	t.Run("validation failure is terminal", func(t *testing.T) {
		delete(env.plex.Labels, "tok-flow")
		flowID, _, err := backend.StartLink(ctx)
		if err != nil {
			t.Fatal(err)
		}
		backend.PollLink(ctx, flowID)
		status, _ := backend.PollLink(ctx, flowID)
		if status.State != linkFailed || !strings.Contains(status.Message, "validation failed") {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("check and remove", func(t *testing.T) {
		id := accounts[0].ID
		ok, _, err := backend.CheckAccount(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Error("token no longer validates, expected not ok")
		}
		if err := backend.RemoveAccount(ctx, id); err != nil {
			t.Fatalf("RemoveAccount: %v", err)
		}
		if _, _, err := backend.CheckAccount(ctx, id); !errors.Is(err, shared.ErrAccountNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestClientIdentifierIsPersisted(t *testing.T) {
	env := newTestEnv(t)
	env.runner.config.Plex.ClientIdentifier = ""
	ctx := context.Background()

	st, err := env.runner.openStack(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first, err := env.runner.clientInfo(ctx, st.settings)
	st.Close()
	if err != nil {
		t.Fatal(err)
	}

	st, err = env.runner.openStack(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	second, err := env.runner.clientInfo(ctx, st.settings)
	if err != nil {
		t.Fatal(err)
	}

	if first.Identifier == "" || first.Identifier != second.Identifier {
		t.Errorf("expected a stable identifier, got %q then %q", first.Identifier, second.Identifier)
	}
}
