package models

import (
	"strconv"
	"time"
)

// EventSource identifies the download manager that emitted an event.
type EventSource string

const (
	SourceRadarr EventSource = "radarr"
	SourceSonarr EventSource = "sonarr"
	SourceManual EventSource = "manual"
)

// Event is a normalized import-completion event.
// TMDBID and TVDBID are empty when the payload did not carry a numeric id.
type Event struct {
	Source EventSource
	TMDBID string
	TVDBID string
	Title  string
	Year   int
}

// Target builds the immutable [TargetItem] for this event.
func (e Event) Target() TargetItem {
	ids := IDs{}
	if e.TMDBID != "" {
		ids[ProviderTMDB] = e.TMDBID
	}
	if e.TVDBID != "" {
		ids[ProviderTVDB] = e.TVDBID
	}
	return TargetItem{Title: e.Title, Year: e.Year, IDs: ids}
}

// YearString renders the year, or "None" when unknown.
func (e Event) YearString() string {
	if e.Year == 0 {
		return "None"
	}
	return strconv.Itoa(e.Year)
}

// ReconciliationResult is returned for every processed event.
type ReconciliationResult struct {
	Removed         int      `json:"removed"`
	ScannedAccounts int      `json:"scanned_accounts"`
	Details         []string `json:"details"`
}

// ActivityEntry is one record of the recent-activity log.
type ActivityEntry struct {
	Timestamp       time.Time   `json:"ts"`
	Source          EventSource `json:"source"`
	Title           string      `json:"title"`
	Year            int         `json:"year,omitempty"`
	TMDBID          string      `json:"tmdb_id,omitempty"`
	TVDBID          string      `json:"tvdb_id,omitempty"`
	Removed         int         `json:"removed"`
	ScannedAccounts int         `json:"scanned_accounts"`
	Details         []string    `json:"details"`
}

// NewActivityEntry pairs an event with its result.
func NewActivityEntry(ts time.Time, e Event, r ReconciliationResult) ActivityEntry {
	details := make([]string, len(r.Details))
	copy(details, r.Details)
	return ActivityEntry{
		Timestamp:       ts,
		Source:          e.Source,
		Title:           e.Title,
		Year:            e.Year,
		TMDBID:          e.TMDBID,
		TVDBID:          e.TVDBID,
		Removed:         r.Removed,
		ScannedAccounts: r.ScannedAccounts,
		Details:         details,
	}
}
