// Package models defines domain entities and persistence interfaces for removarr.
//
// The package contains two categories of types:
//
// 1. Value types exchanged between the reconciliation components
//   - [TargetItem] : The media item named by an import event
//   - [WatchlistEntry] : One entry of an account's watchlist, fetched fresh per event
//   - [MatchOutcome] : How (or whether) a target was located in a watchlist
//   - [Event] : A normalized import event from Radarr or Sonarr
//   - [ReconciliationResult] and [ActivityEntry] : Outcomes reported to callers and the activity log
//
// 2. Persistent Entities
//   - [LinkedAccount] : A Plex account whose watchlist is reconciled, with its health status
//
// Persistent entities implement the Model interface and are stored through a Repository[T].
package models
