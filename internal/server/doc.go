// Package server exposes removarr over HTTP: Radarr/Sonarr webhooks, account management,
// the Plex login flow and the activity log.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /webhook/radarr"),
// so path wildcards are read with [http.Request.PathValue].
//
// # Authentication
//
// Webhooks carry a shared secret in the X-Removarr-Webhook-Token header. The secret stored in
// the settings table wins over the configured one, so it can be rotated without a restart.
//
// Everything under /api requires a static bearer token ([BearerAuth]).
//
// # Login Flows
//
// [FlowManager] tracks pending Plex pin handshakes. A flow is pending until the user approves it
// on plex.tv, and expires after [FlowTTL]. The token is handed out exactly once; the HTTP layer
// validates it and stores it as a new account.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
