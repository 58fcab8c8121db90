// Plex account session client: token validation, watchlist listing and removal.
package services

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/removarr/internal/matcher"
	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/shared"
)

const (
	plexTVBaseURL   = "https://plex.tv"
	discoverBaseURL = "https://discover.provider.plex.tv"

	watchlistPageSize = 100
	maxWatchlistPages = 200
	defaultTimeout    = 20 * time.Second
)

// PlexOptions configures a [PlexService]. Zero values select production defaults.
type PlexOptions struct {
	Client            HTTPDoer
	Info              ClientInfo
	Timeout           time.Duration
	RequestsPerSecond float64
	PlexTVURL         string
	DiscoverURL       string
	Logger            *log.Logger
}

// PlexService implements [WatchlistService] against plex.tv and the discover provider.
type PlexService struct {
	client      HTTPDoer
	info        ClientInfo
	timeout     time.Duration
	limiter     *rate.Limiter
	plexTVURL   string
	discoverURL string
	logger      *log.Logger
}

// NewPlexService creates a new [PlexService].
func NewPlexService(opts PlexOptions) *PlexService {
	p := &PlexService{
		client:      opts.Client,
		info:        opts.Info,
		timeout:     opts.Timeout,
		plexTVURL:   strings.TrimRight(opts.PlexTVURL, "/"),
		discoverURL: strings.TrimRight(opts.DiscoverURL, "/"),
		logger:      opts.Logger,
	}
	if p.client == nil {
		p.client = http.DefaultClient
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.plexTVURL == "" {
		p.plexTVURL = plexTVBaseURL
	}
	if p.discoverURL == "" {
		p.discoverURL = discoverBaseURL
	}
	if p.logger == nil {
		p.logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	p.limiter = rate.NewLimiter(limit, 1)
	return p
}

// plexUser is the subset of GET /api/v2/user we read.
type plexUser struct {
	Username string `json:"username"`
	Title    string `json:"title"`
	Email    string `json:"email"`
}

// ValidateToken checks token against plex.tv and returns the account's username on success.
func (p *PlexService) ValidateToken(ctx context.Context, token string) (bool, string) {
	if strings.TrimSpace(token) == "" {
		return false, "empty token"
	}

	var user plexUser
	resp, err := p.do(ctx, http.MethodGet, p.plexTVURL+"/api/v2/user", token, "application/json")
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return false, fmt.Sprintf("decode user: %v", err)
	}

	switch {
	case user.Username != "":
		return true, user.Username
	case user.Title != "":
		return true, user.Title
	case user.Email != "":
		return true, user.Email
	default:
		return true, "ok"
	}
}

// mediaContainer is the XML envelope of discover listings. Children are kept in
// document order; only Video and Directory nodes are entries.
type mediaContainer struct {
	XMLName   xml.Name    `xml:"MediaContainer"`
	Size      int         `xml:"size,attr"`
	TotalSize int         `xml:"totalSize,attr"`
	Offset    int         `xml:"offset,attr"`
	Items     []mediaNode `xml:",any"`
}

type mediaNode struct {
	XMLName   xml.Name
	RatingKey string     `xml:"ratingKey,attr"`
	Title     string     `xml:"title,attr"`
	Year      string     `xml:"year,attr"`
	GUID      string     `xml:"guid,attr"`
	Guids     []guidNode `xml:"Guid"`
}

type guidNode struct {
	ID string `xml:"id,attr"`
}

func (n mediaNode) isEntry() bool {
	return (n.XMLName.Local == "Video" || n.XMLName.Local == "Directory") && n.RatingKey != ""
}

func (n mediaNode) rawGUIDs() []string {
	raw := make([]string, 0, len(n.Guids)+1)
	if n.GUID != "" {
		raw = append(raw, n.GUID)
	}
	for _, g := range n.Guids {
		if g.ID != "" {
			raw = append(raw, g.ID)
		}
	}
	return raw
}

// toEntry maps a node into a [models.WatchlistEntry]. Unparseable years become 0.
func (n mediaNode) toEntry(logger *log.Logger) models.WatchlistEntry {
	ids, unknown := matcher.ExtractIDsWithUnknown(n.rawGUIDs())
	if len(unknown) > 0 {
		logger.Debug("ignored unrecognized guids", "rating_key", n.RatingKey, "title", n.Title, "guids", unknown)
	}
	year, _ := strconv.Atoi(strings.TrimSpace(n.Year))
	return models.WatchlistEntry{
		RatingKey: n.RatingKey,
		Title:     n.Title,
		Year:      year,
		IDs:       ids,
	}
}

// Watchlist fetches every page of the account's watchlist.
// A page larger than requested is taken as the whole listing. A page that
// repeats the previous one, or a listing past maxWatchlistPages, fails with ErrFetch.
func (p *PlexService) Watchlist(ctx context.Context, token string) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	start := 0
	prevFirst := ""

	for pages := 0; ; pages++ {
		if pages == maxWatchlistPages {
			return nil, fmt.Errorf("%w: watchlist exceeds %d pages", shared.ErrFetch, maxWatchlistPages)
		}

		q := url.Values{}
		q.Set("includeCollections", "1")
		q.Set("includeExternalMedia", "1")
		q.Set("X-Plex-Container-Start", strconv.Itoa(start))
		q.Set("X-Plex-Container-Size", strconv.Itoa(watchlistPageSize))

		page, err := p.watchlistPage(ctx, token, q)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrFetch, err)
		}

		count := len(page.Items)
		if count == 0 {
			break
		}
		first := page.Items[0].RatingKey
		if pages > 0 && first != "" && first == prevFirst {
			return nil, fmt.Errorf("%w: watchlist paging stuck at offset %d", shared.ErrFetch, start)
		}
		prevFirst = first

		for _, node := range page.Items {
			if node.isEntry() {
				entries = append(entries, node.toEntry(p.logger))
			}
		}

		start += count
		if count > watchlistPageSize ||
			(page.TotalSize > 0 && start >= page.TotalSize) ||
			(page.TotalSize == 0 && count < watchlistPageSize) {
			break
		}
	}

	return entries, nil
}

func (p *PlexService) watchlistPage(ctx context.Context, token string, q url.Values) (*mediaContainer, error) {
	endpoint := p.discoverURL + "/library/sections/watchlist/all?" + q.Encode()
	resp, err := p.do(ctx, http.MethodGet, endpoint, token, "application/xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var container mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, fmt.Errorf("parse watchlist XML: %w", err)
	}
	return &container, nil
}

// RemoveFromWatchlist removes ratingKey from the account's watchlist.
func (p *PlexService) RemoveFromWatchlist(ctx context.Context, token, ratingKey string) error {
	if ratingKey == "" {
		return fmt.Errorf("%w: empty rating key", shared.ErrRemove)
	}
	endpoint := p.discoverURL + "/actions/removeFromWatchlist?" + url.Values{"ratingKey": {ratingKey}}.Encode()
	resp, err := p.do(ctx, http.MethodPut, endpoint, token, "application/json")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemove, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do waits on the limiter and issues one bounded request. The caller owns the response body.
func (p *PlexService) do(ctx context.Context, method, endpoint, token, accept string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	if err := p.limiter.Wait(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Plex-Token", token)
	p.info.apply(req)

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("plex request failed: %w", err)
	}
	if err := checkStatus(req, resp); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
