package matcher

import (
	"maps"
	"testing"

	"github.com/desertthunder/removarr/internal/models"
)

func TestExtractIDs(t *testing.T) {
	tc := []struct {
		name string
		raw  []string
		want models.IDs
	}{
		{
			name: "direct forms",
			raw:  []string{"tmdb://603", "tvdb://81189", "imdb://tt0133093"},
			want: models.IDs{models.ProviderTMDB: "603", models.ProviderTVDB: "81189", models.ProviderIMDB: "tt0133093"},
		},
		{
			name: "legacy agent forms",
			raw: []string{
				"com.plexapp.agents.themoviedb://603?lang=en",
				"com.plexapp.agents.thetvdb://81189/1/2?lang=en",
				"com.plexapp.agents.imdb://tt0133093?lang=en",
			},
			want: models.IDs{models.ProviderTMDB: "603", models.ProviderTVDB: "81189", models.ProviderIMDB: "tt0133093"},
		},
		{
			name: "other vendor",
			raw:  []string{"com.example.agents.themoviedb://42"},
			want: models.IDs{models.ProviderTMDB: "42"},
		},
		{
			name: "unrecognized ignored",
			raw:  []string{"plex://movie/5d776825880197001ec967c6", "local://12", "", "com.plexapp.agents.imdb://nm123"},
			want: models.IDs{},
		},
		{
			name: "last write wins",
			raw:  []string{"tmdb://1", "com.plexapp.agents.themoviedb://2", "tmdb://3"},
			want: models.IDs{models.ProviderTMDB: "3"},
		},
		{
			name: "empty input",
			raw:  nil,
			want: models.IDs{},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractIDs(tt.raw)
			if !maps.Equal(got, tt.want) {
				t.Errorf("ExtractIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractIDsWithUnknown(t *testing.T) {
	ids, unknown := ExtractIDsWithUnknown([]string{"tmdb://603", "plex://movie/abc", "junk"})
	if ids.Get(models.ProviderTMDB) != "603" {
		t.Errorf("expected tmdb 603, got %v", ids)
	}
	if len(unknown) != 2 || unknown[0] != "plex://movie/abc" || unknown[1] != "junk" {
		t.Errorf("unexpected unknown list: %v", unknown)
	}
}

func TestExtractIDsIdempotent(t *testing.T) {
	inputs := [][]string{
		{"tmdb://603"},
		{"com.plexapp.agents.thetvdb://81189?lang=en", "imdb://tt0133093"},
		{"com.plexapp.agents.themoviedb://27205", "com.plexapp.agents.imdb://tt1375666"},
	}

	for _, raw := range inputs {
		first := ExtractIDs(raw)
		second := ExtractIDs(Canonical(first))
		if !maps.Equal(first, second) {
			t.Errorf("re-extraction changed mapping: %v -> %v", first, second)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{"The Matrix!", "the matrix"},
		{"the   matrix", "the matrix"},
		{"  Spider-Man: No Way Home  ", "spider man no way home"},
		{"WALL·E", "wall e"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeTitle(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := NormalizeTitle(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}

	if !TitlesEqual("The Matrix!", "the   matrix") {
		t.Error("expected titles to be equal after normalization")
	}
}

func TestMatch(t *testing.T) {
	t.Run("identifier beats earlier title candidate", func(t *testing.T) {
		target := models.TargetItem{Title: "The Matrix", Year: 1999, IDs: models.IDs{models.ProviderTMDB: "603"}}
		entries := []models.WatchlistEntry{
			{RatingKey: "a", Title: "The Matrix", Year: 1999},
			{RatingKey: "b", Title: "Other", Year: 2000},
			{RatingKey: "c", Title: "Matrix (1999)", IDs: models.IDs{models.ProviderTMDB: "603"}},
		}

		got, outcome := Match(target, entries)
		if got == nil || got.RatingKey != "c" {
			t.Fatalf("expected entry c, got %+v", got)
		}
		if outcome.Kind != models.MatchByID || outcome.Provider != models.ProviderTMDB || outcome.ID != "603" {
			t.Errorf("unexpected outcome %+v", outcome)
		}
	})

	t.Run("tmdb before tvdb on same entry", func(t *testing.T) {
		target := models.TargetItem{Title: "X", IDs: models.IDs{models.ProviderTMDB: "1", models.ProviderTVDB: "2"}}
		entries := []models.WatchlistEntry{{RatingKey: "k", Title: "X", IDs: models.IDs{models.ProviderTMDB: "1", models.ProviderTVDB: "2"}}}
		_, outcome := Match(target, entries)
		if outcome.Provider != models.ProviderTMDB {
			t.Errorf("expected tmdb match, got %+v", outcome)
		}
	})

	t.Run("tvdb match", func(t *testing.T) {
		target := models.TargetItem{Title: "Breaking Bad", IDs: models.IDs{models.ProviderTVDB: "81189"}}
		entries := []models.WatchlistEntry{
			{RatingKey: "x", Title: "Better Call Saul", IDs: models.IDs{models.ProviderTVDB: "273181"}},
			{RatingKey: "y", Title: "BB", IDs: models.IDs{models.ProviderTVDB: "81189"}},
		}
		got, outcome := Match(target, entries)
		if got == nil || got.RatingKey != "y" || outcome.Describe() != "Removed by TVDB 81189" {
			t.Errorf("got %+v %+v", got, outcome)
		}
	})

	t.Run("title and year fallback", func(t *testing.T) {
		target := models.TargetItem{Title: "Inception", Year: 2010}

		got, outcome := Match(target, []models.WatchlistEntry{{RatingKey: "i", Title: "inception", Year: 2010}})
		if got == nil || outcome.Kind != models.MatchByTitle || !outcome.YearChecked {
			t.Errorf("expected title/year match, got %+v %+v", got, outcome)
		}

		got, outcome = Match(target, []models.WatchlistEntry{{RatingKey: "i", Title: "Inception", Year: 2011}})
		if got != nil || outcome.Kind != models.NotFound {
			t.Errorf("year mismatch should not match, got %+v %+v", got, outcome)
		}
	})

	t.Run("absent years are tolerated", func(t *testing.T) {
		got, outcome := Match(models.TargetItem{Title: "Dune"}, []models.WatchlistEntry{{RatingKey: "d", Title: "DUNE", Year: 2021}})
		if got == nil || outcome.YearChecked {
			t.Errorf("expected unchecked title match, got %+v %+v", got, outcome)
		}
		if outcome.Describe() != "Removed by title fallback" {
			t.Errorf("describe = %q", outcome.Describe())
		}

		got, _ = Match(models.TargetItem{Title: "Dune", Year: 2021}, []models.WatchlistEntry{{RatingKey: "d", Title: "Dune"}})
		if got == nil {
			t.Error("entry without year should match")
		}
	})

	t.Run("first title candidate wins", func(t *testing.T) {
		entries := []models.WatchlistEntry{
			{RatingKey: "1", Title: "Heat"},
			{RatingKey: "2", Title: "Heat"},
		}
		got, _ := Match(models.TargetItem{Title: "heat"}, entries)
		if got == nil || got.RatingKey != "1" {
			t.Errorf("expected first entry, got %+v", got)
		}
	})

	t.Run("empty title never falls back", func(t *testing.T) {
		got, _ := Match(models.TargetItem{Title: "???"}, []models.WatchlistEntry{{RatingKey: "1", Title: "!!"}})
		if got != nil {
			t.Errorf("punctuation-only titles should not match, got %+v", got)
		}
	})

	t.Run("empty watchlist", func(t *testing.T) {
		got, outcome := Match(models.TargetItem{Title: "Anything"}, nil)
		if got != nil || outcome.Matched() {
			t.Error("expected not found")
		}
	})
}
