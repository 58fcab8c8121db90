// plex.tv pin handshake used to link accounts without copying tokens by hand.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/removarr/internal/shared"
)

const plexAppAuthURL = "https://app.plex.tv/auth"

// Pin is a pending plex.tv link code.
type Pin struct {
	ID        int64
	Code      string
	ExpiresAt time.Time
}

// PinStatus is the result of checking a pin. Expired is set when plex.tv
// no longer knows the pin or its expiry has passed.
type PinStatus struct {
	Authorized bool
	Token      string
	Expired    bool
	ExpiresAt  time.Time
}

type pinResponse struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	AuthToken *string `json:"authToken"`
	ExpiresIn float64 `json:"expiresIn"`
	ExpiresAt string  `json:"expiresAt"`
}

func (p pinResponse) expirationTime(now time.Time) time.Time {
	if p.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, p.ExpiresAt); err == nil {
			return t
		}
	}
	if p.ExpiresIn > 0 {
		return now.Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// PinClient implements [PinService] against plex.tv.
type PinClient struct {
	client  HTTPDoer
	info    ClientInfo
	baseURL string
	authURL string
	timeout time.Duration
	now     func() time.Time
}

// NewPinClient creates a [PinClient]. Empty URLs select plex.tv defaults.
func NewPinClient(client HTTPDoer, info ClientInfo, baseURL string, timeout time.Duration) *PinClient {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = plexTVBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &PinClient{
		client:  client,
		info:    info,
		baseURL: strings.TrimRight(baseURL, "/"),
		authURL: plexAppAuthURL,
		timeout: timeout,
		now:     time.Now,
	}
}

// RequestPin creates a strong pin on plex.tv.
func (c *PinClient) RequestPin(ctx context.Context) (*Pin, error) {
	var resp pinResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/v2/pins?strong=true", &resp); err != nil {
		return nil, fmt.Errorf("request pin: %w", err)
	}
	if resp.ID == 0 || resp.Code == "" {
		return nil, fmt.Errorf("%w: pin response missing id or code", shared.ErrAPIRequest)
	}
	return &Pin{ID: resp.ID, Code: resp.Code, ExpiresAt: resp.expirationTime(c.now())}, nil
}

// CheckPin asks plex.tv whether the pin has been claimed.
func (c *PinClient) CheckPin(ctx context.Context, id int64) (*PinStatus, error) {
	var resp pinResponse
	code, err := c.doJSON(ctx, http.MethodGet, "/api/v2/pins/"+strconv.FormatInt(id, 10), &resp)
	if code == http.StatusNotFound {
		return &PinStatus{Expired: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check pin: %w", err)
	}

	status := &PinStatus{ExpiresAt: resp.expirationTime(c.now())}
	if resp.AuthToken != nil && strings.TrimSpace(*resp.AuthToken) != "" {
		status.Authorized = true
		status.Token = strings.TrimSpace(*resp.AuthToken)
		return status, nil
	}
	if !status.ExpiresAt.IsZero() && c.now().After(status.ExpiresAt) {
		status.Expired = true
	}
	return status, nil
}

// AuthURL builds the app.plex.tv page where the user approves the pin.
func (c *PinClient) AuthURL(pin *Pin) string {
	product := c.info.Product
	if product == "" {
		product = "Removarr"
	}
	q := url.Values{}
	q.Set("clientID", c.info.Identifier)
	q.Set("code", pin.Code)
	q.Set("context[device][product]", product)
	return c.authURL + "#?" + q.Encode()
}

// doJSON returns the HTTP status code alongside any error so callers can branch on 404.
func (c *PinClient) doJSON(ctx context.Context, method, path string, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.info.apply(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(req, resp); err != nil {
		return resp.StatusCode, err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
