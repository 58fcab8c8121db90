// Package tasks runs the watchlist reconciliation work with real-time progress reporting.
//
// # Reconciliation
//
// [Reconciler.Process] handles one import event:
//
//  1. Loads every linked account
//  2. Optionally asks the Plex library whether the title exists, and stops early on a confirmed miss
//  3. For each account: decrypts its token, fetches its watchlist, matches the target and removes it
//  4. Appends exactly one record to the [ActivityLog]
//
// A failure for one account becomes a "[label] ERROR: ..." detail line and never stops the others.
// Authorization failures mark the account invalid through the [HealthTracker].
//
// # Health
//
// [HealthTracker] records per-account status. [Sweeper] revalidates every account on a fixed
// interval, independent of webhook traffic.
//
// # Progress Reporting
//
// Operations accept an optional progress channel. Updates are sent with select/default so a slow
// or absent reader never blocks reconciliation.
package tasks
