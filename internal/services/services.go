// package services defines the clients removarr uses to talk to Plex
// (plex.tv, the discover watchlist provider and a Plex Media Server) and to a
// running removarr server.
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/desertthunder/removarr/internal/models"
)

// HTTPDoer abstracts [http.Client.Do] for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// WatchlistService is the per-account session client used by reconciliation.
type WatchlistService interface {
	// ValidateToken performs a minimal authenticated call. Failure is reported
	// as ok=false with a diagnostic message, never as an error.
	ValidateToken(ctx context.Context, token string) (ok bool, labelOrMessage string)

	// Watchlist fetches the full watchlist for the token's account.
	Watchlist(ctx context.Context, token string) ([]models.WatchlistEntry, error)

	// RemoveFromWatchlist removes the entry with the given rating key.
	RemoveFromWatchlist(ctx context.Context, token, ratingKey string) error
}

// LibraryChecker answers whether a title is present in the configured Plex library.
type LibraryChecker interface {
	Available(ctx context.Context, target models.TargetItem) bool
}

// PinService drives the plex.tv pin handshake used to link accounts.
type PinService interface {
	RequestPin(ctx context.Context) (*Pin, error)
	CheckPin(ctx context.Context, id int64) (*PinStatus, error)
	AuthURL(pin *Pin) string
}

// ClientInfo identifies this application to Plex through the X-Plex-* headers.
type ClientInfo struct {
	Identifier string
	Product    string
	Version    string
}

func (c ClientInfo) apply(req *http.Request) {
	product := c.Product
	if product == "" {
		product = "Removarr"
	}
	req.Header.Set("X-Plex-Client-Identifier", c.Identifier)
	req.Header.Set("X-Plex-Product", product)
	req.Header.Set("X-Plex-Version", c.Version)
	req.Header.Set("X-Plex-Device-Name", product)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)
}

// StatusError is returned for non-2xx Plex responses.
// Its message carries the numeric code and reason phrase, e.g. "401 Unauthorized".
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("plex %s %s returned %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// checkStatus converts an error response into a [StatusError], draining the body.
func checkStatus(req *http.Request, resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Method: req.Method,
		Path:   req.URL.Path,
		Code:   resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
}
