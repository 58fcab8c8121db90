// Package services implements the outbound clients removarr depends on.
//
// # Watchlist client
//
// [PlexService] implements [WatchlistService]: token validation against
// plex.tv, paginated watchlist fetches and removals against the discover
// provider. Requests share one rate limiter and each call is bounded by the
// configured timeout. Non-2xx answers surface as [StatusError] so callers can
// tell revoked tokens (401) from transient failures.
//
// # Library client
//
// [LibraryService] implements [LibraryChecker] with the /hubs/search endpoint
// of a Plex Media Server. It never blocks a removal on its own failure: an
// unconfigured or unreachable server answers available.
//
// # Pin handshake
//
// [PinClient] implements [PinService], the plex.tv pin flow used to link an
// account from a browser login instead of a pasted token.
//
// # Server client
//
// [APIService] talks to the /api routes of a running removarr server with a
// bearer token. The CLI uses it for logs and raw API calls.
package services
