// Plex Media Server library lookups used to gate removals when verification is enabled.
package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/removarr/internal/matcher"
	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/shared"
)

// LibraryService implements [LibraryChecker] with the /hubs/search endpoint of a Plex Media Server.
type LibraryService struct {
	client  HTTPDoer
	info    ClientInfo
	baseURL string
	token   string
	timeout time.Duration
	logger  *log.Logger

	mu     sync.Mutex
	server *libraryServer
}

// libraryServer is the connection handle built on first use and reused afterwards.
type libraryServer struct {
	base       *url.URL
	identifier string
}

// NewLibraryService creates a [LibraryService]. An empty baseURL or token leaves it unconfigured.
func NewLibraryService(client HTTPDoer, info ClientInfo, baseURL, token string, timeout time.Duration, logger *log.Logger) *LibraryService {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryService{
		client:  client,
		info:    info,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: timeout,
		logger:  logger,
	}
}

// Configured reports whether a server URL and token are set.
func (l *LibraryService) Configured() bool {
	return l.baseURL != "" && l.token != ""
}

// Available reports whether target exists in the library.
//
// An unconfigured or unreachable server never blocks a removal: both cases
// answer true and log why. Only a successful search without a match answers false.
func (l *LibraryService) Available(ctx context.Context, target models.TargetItem) bool {
	if !l.Configured() {
		l.logger.Warn("library verification skipped", "err", shared.ErrConfigurationGap)
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	srv, err := l.connect(ctx)
	if err != nil {
		l.logger.Warn("plex library unreachable, treating as available", "err", err)
		return true
	}

	results, err := l.search(ctx, srv, target.Title)
	if err != nil {
		l.logger.Warn("plex library search failed, treating as available", "title", target.Title, "err", err)
		return true
	}

	return libraryContains(target, results)
}

// libraryContains applies the library match rules to search results.
func libraryContains(target models.TargetItem, results []mediaNode) bool {
	title := matcher.NormalizeTitle(target.Title)
	tmdb := target.IDs.Get(models.ProviderTMDB)
	tvdb := target.IDs.Get(models.ProviderTVDB)

	for _, r := range results {
		year, _ := strconv.Atoi(strings.TrimSpace(r.Year))
		if title != "" && matcher.NormalizeTitle(r.Title) != title {
			continue
		}
		if target.Year != 0 && year != 0 && year != target.Year {
			continue
		}

		ids := matcher.ExtractIDs(r.rawGUIDs())
		if tmdb != "" && ids.Get(models.ProviderTMDB) == tmdb {
			return true
		}
		if tvdb != "" && ids.Get(models.ProviderTVDB) == tvdb {
			return true
		}
		if title != "" && (target.Year == 0 || year == target.Year) {
			return true
		}
	}
	return false
}

// connect returns the cached server handle, probing /identity on first use.
// A failed probe is not cached so the next call retries.
func (l *LibraryService) connect(ctx context.Context) (*libraryServer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return l.server, nil
	}

	base, err := url.Parse(l.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid plex server url: %v", shared.ErrInvalidConfig, err)
	}

	var identity struct {
		MachineIdentifier string `xml:"machineIdentifier,attr"`
	}
	if err := l.getXML(ctx, base.JoinPath("identity"), &identity); err != nil {
		return nil, err
	}

	l.server = &libraryServer{base: base, identifier: identity.MachineIdentifier}
	l.logger.Debug("connected to plex server", "url", l.baseURL, "machine_id", identity.MachineIdentifier)
	return l.server, nil
}

type hubContainer struct {
	XMLName xml.Name `xml:"MediaContainer"`
	Hubs    []struct {
		Type  string      `xml:"type,attr"`
		Items []mediaNode `xml:",any"`
	} `xml:"Hub"`
}

func (l *LibraryService) search(ctx context.Context, srv *libraryServer, query string) ([]mediaNode, error) {
	u := srv.base.JoinPath("hubs", "search")
	u.RawQuery = url.Values{"query": {query}, "includeGuids": {"1"}}.Encode()

	var container hubContainer
	if err := l.getXML(ctx, u, &container); err != nil {
		return nil, err
	}

	var results []mediaNode
	for _, hub := range container.Hubs {
		for _, item := range hub.Items {
			if item.isEntry() {
				results = append(results, item)
			}
		}
	}
	return results, nil
}

func (l *LibraryService) getXML(ctx context.Context, u *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("X-Plex-Token", l.token)
	l.info.apply(req)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(req, resp); err != nil {
		return err
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
