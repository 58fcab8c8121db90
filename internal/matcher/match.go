package matcher

import (
	"github.com/desertthunder/removarr/internal/models"
)

// Match locates target in entries. Rules, in priority order:
//
//  1. same tmdb id as the target
//  2. same tvdb id as the target
//  3. same normalized title, and the years agree or either is unknown
//
// Identifier rules are checked against every entry before any title
// fallback is considered, so an id match later in the listing beats a
// title-only candidate earlier in it. Within a rule the first entry in
// listing order wins.
func Match(target models.TargetItem, entries []models.WatchlistEntry) (*models.WatchlistEntry, models.MatchOutcome) {
	tmdb := target.IDs.Get(models.ProviderTMDB)
	tvdb := target.IDs.Get(models.ProviderTVDB)

	if tmdb != "" || tvdb != "" {
		for i := range entries {
			e := &entries[i]
			if tmdb != "" && e.IDs.Get(models.ProviderTMDB) == tmdb {
				return e, models.MatchOutcome{Kind: models.MatchByID, Provider: models.ProviderTMDB, ID: tmdb}
			}
			if tvdb != "" && e.IDs.Get(models.ProviderTVDB) == tvdb {
				return e, models.MatchOutcome{Kind: models.MatchByID, Provider: models.ProviderTVDB, ID: tvdb}
			}
		}
	}

	title := NormalizeTitle(target.Title)
	if title == "" {
		return nil, models.MatchOutcome{Kind: models.NotFound}
	}

	for i := range entries {
		e := &entries[i]
		if NormalizeTitle(e.Title) == title && yearsAgree(target.Year, e.Year) {
			return e, models.MatchOutcome{
				Kind:        models.MatchByTitle,
				YearChecked: target.Year != 0 && e.Year != 0,
			}
		}
	}

	return nil, models.MatchOutcome{Kind: models.NotFound}
}

func yearsAgree(a, b int) bool {
	return a == 0 || b == 0 || a == b
}
