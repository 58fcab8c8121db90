package models

import (
	"fmt"
	"strings"
)

// Provider names an external metadata database.
type Provider string

const (
	ProviderTMDB Provider = "tmdb"
	ProviderTVDB Provider = "tvdb"
	ProviderIMDB Provider = "imdb"
)

// Label is the upper-case form used in detail lines ("TMDB", "TVDB").
func (p Provider) Label() string {
	return strings.ToUpper(string(p))
}

// IDs maps a provider to its provider-local identifier. At most one value per provider.
type IDs map[Provider]string

// Get returns the id for p, or "" when absent.
func (ids IDs) Get(p Provider) string {
	if ids == nil {
		return ""
	}
	return ids[p]
}

// TargetItem is the media item to reconcile. Year is 0 when unknown.
type TargetItem struct {
	Title string
	Year  int
	IDs   IDs
}

// WatchlistEntry is one item reported by an account's watchlist.
// RatingKey is the opaque key passed back to the removal call.
type WatchlistEntry struct {
	RatingKey string
	Title     string
	Year      int
	IDs       IDs
}

// MatchKind classifies a [MatchOutcome].
type MatchKind int

const (
	NotFound MatchKind = iota
	MatchByID
	MatchByTitle
)

func (k MatchKind) String() string {
	switch k {
	case MatchByID:
		return "id"
	case MatchByTitle:
		return "title"
	default:
		return "not_found"
	}
}

// MatchOutcome records how a target was found in a watchlist.
//
// Provider is set for [MatchByID]. YearChecked is set for [MatchByTitle] when
// both the target and the entry carried a year.
type MatchOutcome struct {
	Kind        MatchKind
	Provider    Provider
	ID          string
	YearChecked bool
}

// Matched reports whether a removal should be attempted.
func (o MatchOutcome) Matched() bool {
	return o.Kind != NotFound
}

// Describe renders the outcome as a removal detail line.
func (o MatchOutcome) Describe() string {
	switch o.Kind {
	case MatchByID:
		return fmt.Sprintf("Removed by %s %s", o.Provider.Label(), o.ID)
	case MatchByTitle:
		if o.YearChecked {
			return "Removed by title/year fallback"
		}
		return "Removed by title fallback"
	default:
		return "Not on watchlist"
	}
}
