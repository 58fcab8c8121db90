package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/repositories"
)

// WebhookTokenHeader carries the shared secret on webhook calls.
const WebhookTokenHeader = "X-Removarr-Webhook-Token"

// acceptedEventType is the only Radarr/Sonarr event that triggers reconciliation.
const acceptedEventType = "Download"

// flexInt decodes a JSON number or numeric string. Anything else, and
// non-positive values, decode as absent.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

func (f flexInt) String() string {
	if f <= 0 {
		return ""
	}
	return strconv.Itoa(int(f))
}

type arrMedia struct {
	TMDBID flexInt `json:"tmdbId"`
	TVDBID flexInt `json:"tvdbId"`
	Title  string  `json:"title"`
	Year   flexInt `json:"year"`
}

type arrPayload struct {
	EventType string    `json:"eventType"`
	Event     string    `json:"event"`
	Title     string    `json:"title"`
	Movie     *arrMedia `json:"movie"`
	Series    *arrMedia `json:"series"`
}

func (p arrPayload) eventType() string {
	if et := strings.TrimSpace(p.EventType); et != "" {
		return et
	}
	return strings.TrimSpace(p.Event)
}

// toEvent normalizes a payload. Radarr contributes only a tmdb id, Sonarr only a tvdb id.
func (p arrPayload) toEvent(source models.EventSource) models.Event {
	var media arrMedia
	switch source {
	case models.SourceRadarr:
		if p.Movie != nil {
			media = *p.Movie
		}
		media.TVDBID = 0
	case models.SourceSonarr:
		if p.Series != nil {
			media = *p.Series
		}
		media.TMDBID = 0
	}

	title := strings.TrimSpace(media.Title)
	if title == "" {
		title = strings.TrimSpace(p.Title)
	}
	if title == "" {
		title = "Unknown"
	}

	return models.Event{
		Source: source,
		TMDBID: media.TMDBID.String(),
		TVDBID: media.TVDBID.String(),
		Title:  title,
		Year:   int(media.Year),
	}
}

// WebhookHandler accepts Radarr and Sonarr import notifications.
type WebhookHandler struct {
	server *Server
}

func (h *WebhookHandler) Routes() []string {
	return []string{"POST /webhook/radarr", "POST /webhook/sonarr"}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var source models.EventSource
	switch r.URL.Path {
	case "/webhook/radarr":
		source = models.SourceRadarr
	case "/webhook/sonarr":
		source = models.SourceSonarr
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	expected, err := h.server.webhookToken(r)
	if err != nil {
		h.server.Logger.Error("failed to load webhook token", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if expected == "" || !secureEqual(r.Header.Get(WebhookTokenHeader), expected) {
		writeError(w, http.StatusUnauthorized, "Unauthorized (webhook token)")
		return
	}

	var payload arrPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON payload: %v", err))
		return
	}

	et := payload.eventType()
	if !strings.EqualFold(et, acceptedEventType) {
		writeJSON(w, http.StatusOK, models.ReconciliationResult{
			Details: []string{fmt.Sprintf("Ignored eventType='%s' (accepted: '%s')", et, acceptedEventType)},
		})
		return
	}

	result := h.server.Engine.Process(r.Context(), payload.toEvent(source), nil)
	writeJSON(w, http.StatusOK, result)
}

// webhookToken returns the stored token, falling back to the configured one.
func (s *Server) webhookToken(r *http.Request) (string, error) {
	if s.Settings != nil {
		v, ok, err := s.Settings.Get(r.Context(), repositories.SettingWebhookToken)
		if err != nil {
			return "", err
		}
		if ok && v != "" {
			return v, nil
		}
	}
	return s.Config.Server.WebhookToken, nil
}
