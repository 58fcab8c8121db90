// Package repositories implements SQLite persistence for linked accounts and runtime settings.
//
// Key Implementations:
//   - [AccountRepository] : Linked Plex accounts, unique by label, plus health transitions
//   - [SettingRepository] : Small string-keyed settings table (webhook token)
//
// Accounts are ordered by a sequence number drawn from a dedicated counter table by [NextSequence],
// which keeps listing order stable independent of UUIDs and creation timestamps.
package repositories
