package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/removarr/internal/models"
	tu "github.com/desertthunder/removarr/internal/testing"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func sampleActivity() []models.ActivityEntry {
	return []models.ActivityEntry{
		{
			Timestamp: now.Add(-5 * time.Minute), Source: models.SourceRadarr,
			Title: "Inception", Year: 2010, TMDBID: "27205",
			Removed: 1, ScannedAccounts: 2,
			Details: []string{"[alice] Removed by TMDB 27205", "[bob] Not on watchlist"},
		},
		{
			Timestamp: now.Add(-3 * time.Hour), Source: models.SourceSonarr,
			Title: "Breaking Bad", TVDBID: "81189",
			Removed: 0, ScannedAccounts: 1,
			Details: []string{"[alice] ERROR: 401 Unauthorized"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"MD", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"csv", FormatCSV, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResultToText(t *testing.T) {
	out := string(ResultToText(models.ReconciliationResult{
		Removed: 1, ScannedAccounts: 2,
		Details: []string{"[alice] Removed by title fallback", "[bob] Not on watchlist"},
	}))

	if !strings.HasPrefix(out, "Removed: 1  Scanned accounts: 2\n") {
		t.Errorf("unexpected summary: %q", out)
	}
	if !strings.Contains(out, "  [bob] Not on watchlist\n") {
		t.Errorf("missing detail line: %q", out)
	}
}

func TestAccountsToText(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := string(AccountsToText(nil, now)); got != "No linked accounts.\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("table", func(t *testing.T) {
		checked := now.Add(-2 * time.Hour)
		accounts := []models.AccountView{
			{ID: "id-1", Label: "alice", Status: models.StatusOK, AuthMethod: models.AuthOAuth, LastCheckAt: &checked, LastOKAt: &checked},
			{ID: "id-2", Label: "bob", Status: models.StatusInvalid, AuthMethod: models.AuthManual, LastCheckAt: &checked, LastError: "401 Unauthorized"},
		}
		out := string(AccountsToText(accounts, now))

		for _, want := range []string{"LABEL", "alice", "2 hours ago", "never", "└ 401 Unauthorized", "id-2"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
		if lines := strings.Count(out, "\n"); lines != 4 {
			t.Errorf("expected 4 lines, got %d", lines)
		}
	})
}

func TestActivityExporters(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		out := string(ActivityToText(sampleActivity(), now))
		if !strings.Contains(out, "5 minutes ago  [radarr] Inception (2010)  removed 1/2") {
			t.Errorf("unexpected text:\n%s", out)
		}
		if !strings.Contains(out, "[sonarr] Breaking Bad  removed 0/1") {
			t.Errorf("year should be omitted when unknown:\n%s", out)
		}
		if got := string(ActivityToText(nil, now)); got != "No activity recorded.\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		out := string(ActivityToMarkdown(sampleActivity()))
		for _, want := range []string{"# Removarr Activity", "**Events**: 2", "## Inception (2010)", "- **TMDB**: 27205", "- **TVDB**: 81189", "1. [alice] ERROR: 401 Unauthorized"} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown missing %q", want)
			}
		}
	})

	t.Run("csv", func(t *testing.T) {
		data, err := ActivityToCSV(sampleActivity())
		if err != nil {
			t.Fatalf("ActivityToCSV failed: %v", err)
		}
		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header + 2 rows, got %d", len(records))
		}
		if records[0][0] != "Timestamp" || records[1][2] != "Inception" || records[2][3] != "" {
			t.Errorf("unexpected records %v", records)
		}
		if records[1][8] != "[alice] Removed by TMDB 27205 | [bob] Not on watchlist" {
			t.Errorf("unexpected details column %q", records[1][8])
		}
	})

	t.Run("json", func(t *testing.T) {
		data, err := RenderActivity(sampleActivity(), FormatJSON, now)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"tmdb_id": "27205"`) {
			t.Errorf("unexpected JSON: %s", data)
		}
	})
}

func TestWriteActivityExport(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.md")
		got, err := WriteActivityExport(sampleActivity(), FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteActivityExport failed: %v", err)
		}
		if data := tu.MustReadFile(t, got); !strings.HasPrefix(data, "# Removarr Activity") {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("default path", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		got, err := WriteActivityExport(sampleActivity(), FormatCSV, "")
		if err != nil {
			t.Fatal(err)
		}
		if got != "activity.csv" {
			t.Errorf("expected activity.csv, got %q", got)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "activity.csv"))
	})

	t.Run("unwritable path", func(t *testing.T) {
		if _, err := WriteActivityExport(nil, FormatText, filepath.Join(t.TempDir(), "missing", "x.txt")); err == nil {
			t.Error("expected error")
		}
	})
}
