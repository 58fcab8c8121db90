package models

import (
	"testing"
	"time"
)

func TestMatchOutcomeDescribe(t *testing.T) {
	tc := []struct {
		name    string
		outcome MatchOutcome
		want    string
	}{
		{"tmdb", MatchOutcome{Kind: MatchByID, Provider: ProviderTMDB, ID: "603"}, "Removed by TMDB 603"},
		{"tvdb", MatchOutcome{Kind: MatchByID, Provider: ProviderTVDB, ID: "81189"}, "Removed by TVDB 81189"},
		{"title", MatchOutcome{Kind: MatchByTitle}, "Removed by title fallback"},
		{"title year", MatchOutcome{Kind: MatchByTitle, YearChecked: true}, "Removed by title/year fallback"},
		{"not found", MatchOutcome{}, "Not on watchlist"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
			if tt.outcome.Matched() != (tt.outcome.Kind != NotFound) {
				t.Errorf("Matched() inconsistent for %v", tt.outcome.Kind)
			}
		})
	}
}

func TestEventTarget(t *testing.T) {
	e := Event{Source: SourceRadarr, TMDBID: "603", Title: "The Matrix", Year: 1999}
	target := e.Target()

	if target.IDs.Get(ProviderTMDB) != "603" {
		t.Errorf("expected tmdb 603, got %q", target.IDs.Get(ProviderTMDB))
	}
	if _, ok := target.IDs[ProviderTVDB]; ok {
		t.Error("absent tvdb id should not be present in the map")
	}
	if e.YearString() != "1999" {
		t.Errorf("YearString() = %q", e.YearString())
	}
	if (Event{}).YearString() != "None" {
		t.Error("unknown year should render as None")
	}
}

func TestLinkedAccount(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		a := NewLinkedAccount("  alice ", "enc", AuthManual)
		if a.Label() != "alice" {
			t.Errorf("label should be trimmed, got %q", a.Label())
		}
		if err := a.Validate(); err == nil {
			t.Error("expected error without id")
		}
		a.SetID("id-1")
		if err := a.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		bad := NewLinkedAccount("bob", "enc", AuthMethod("password"))
		bad.SetID("id-2")
		if err := bad.Validate(); err == nil {
			t.Error("expected error for unknown auth method")
		}
	})

	t.Run("health transitions", func(t *testing.T) {
		a := NewLinkedAccount("alice", "enc", AuthOAuth)
		first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		a.MarkOK(first)
		if a.Status() != StatusOK || a.LastOKAt() == nil || !a.LastOKAt().Equal(first) {
			t.Fatalf("MarkOK did not record success: %+v", a.View())
		}

		second := first.Add(time.Hour)
		a.MarkError(second, "401 Unauthorized")
		if a.Status() != StatusInvalid {
			t.Errorf("expected invalid, got %s", a.Status())
		}
		if !a.LastCheckAt().Equal(second) {
			t.Errorf("last check should advance")
		}
		if !a.LastOKAt().Equal(first) {
			t.Errorf("last ok should be untouched by MarkError")
		}
		if a.LastError() != "401 Unauthorized" {
			t.Errorf("last error = %q", a.LastError())
		}

		a.MarkOK(second.Add(time.Hour))
		if a.LastError() != "" {
			t.Error("MarkOK should clear last error")
		}
	})
}
