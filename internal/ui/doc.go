// Package ui implements the interactive account manager using bubbletea's Elm architecture.
//
// The TUI provides a small workflow over linked Plex accounts:
//  1. [AccountListView] : Browse linked accounts with their health status
//  2. [ConfirmView] : Confirm removal of the selected account
//  3. [LinkView] : Link a new account through the Plex pin flow, polling until approved
//  4. [ResultView] : Display the outcome of a link or check
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// All I/O goes through a [Backend], so the same model drives a local database or a running server.
//
// Keyboard navigation uses vim-style bindings (j/k, a, c, d, y/n, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
