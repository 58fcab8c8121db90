package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/removarr/internal/models"
	"github.com/desertthunder/removarr/internal/repositories"
	"github.com/desertthunder/removarr/internal/shared"
)

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"verify_in_plex": s.Config.Plex.VerifyInLibrary,
	})
}

// InfoResponse describes how to point Radarr and Sonarr at this server.
type InfoResponse struct {
	Version            string      `json:"version"`
	Webhook            WebhookInfo `json:"webhook"`
	VerifyInPlex       bool        `json:"verify_in_plex"`
	PlexBaseURLSet     bool        `json:"plex_base_url_set"`
	PlexServerTokenSet bool        `json:"plex_server_token_set"`
}

type WebhookInfo struct {
	RadarrPath             string `json:"radarr_path"`
	SonarrPath             string `json:"sonarr_path"`
	Header                 string `json:"header"`
	RecommendedRadarrEvent string `json:"recommended_radarr_event"`
	RecommendedSonarrEvent string `json:"recommended_sonarr_event"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Version: s.Version,
		Webhook: WebhookInfo{
			RadarrPath:             "/webhook/radarr",
			SonarrPath:             "/webhook/sonarr",
			Header:                 WebhookTokenHeader,
			RecommendedRadarrEvent: "On Import Complete",
			RecommendedSonarrEvent: "On Import Complete",
		},
		VerifyInPlex:       s.Config.Plex.VerifyInLibrary,
		PlexBaseURLSet:     s.Config.Plex.ServerURL != "",
		PlexServerTokenSet: s.Config.Plex.ServerToken != "",
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.Accounts.List(nil)
	if err != nil {
		s.Logger.Error("failed to list accounts", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	views := make([]models.AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, a.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// CreateAccountRequest links an account from a pasted Plex token.
type CreateAccountRequest struct {
	Label     string `json:"label"`
	PlexToken string `json:"plex_token"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	req.PlexToken = strings.TrimSpace(req.PlexToken)
	if req.Label == "" || req.PlexToken == "" {
		writeError(w, http.StatusBadRequest, "label and plex_token are required")
		return
	}

	ok, msg := s.Plex.ValidateToken(r.Context(), req.PlexToken)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid Plex token: "+msg)
		return
	}

	acc, err := s.linker().Store(req.Label, req.PlexToken, models.AuthManual)
	switch {
	case errors.Is(err, shared.ErrDuplicateLabel):
		writeError(w, http.StatusBadRequest, "Failed to add account: "+err.Error())
		return
	case err != nil:
		s.Logger.Error("failed to add account", "label", req.Label, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to add account")
		return
	}
	writeJSON(w, http.StatusOK, acc.View())
}

func (s *Server) linker() *Linker {
	return &Linker{
		Accounts: s.Accounts,
		Cipher:   s.Cipher,
		Plex:     s.Plex,
		Logger:   s.Logger,
		Now:      s.now,
	}
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Accounts.Delete(id); err != nil {
		if errors.Is(err, shared.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		s.Logger.Error("failed to delete account", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// CheckResponse reports a single-account revalidation.
type CheckResponse struct {
	OK      bool               `json:"ok"`
	Message string             `json:"message"`
	Account models.AccountView `json:"account"`
}

func (s *Server) handleCheckAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	acc, err := s.Accounts.Get(id)
	if err != nil {
		if errors.Is(err, shared.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	ok, msg := s.Checker.Check(r.Context(), acc)
	if refreshed, err := s.Accounts.Get(id); err == nil {
		acc = refreshed
	}
	writeJSON(w, http.StatusOK, CheckResponse{OK: ok, Message: msg, Account: acc.View()})
}

// FlowStartResponse carries the login URL the user must open.
type FlowStartResponse struct {
	FlowID string `json:"flow_id"`
	URL    string `json:"url"`
}

func (s *Server) handleFlowStart(w http.ResponseWriter, r *http.Request) {
	flowID := shared.GenerateID()
	url, err := s.Flows.Start(r.Context(), flowID)
	if err != nil {
		s.Logger.Error("failed to start login flow", "err", err)
		writeError(w, http.StatusBadGateway, "failed to start Plex login: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FlowStartResponse{FlowID: flowID, URL: url})
}

// FlowStatusResponse is returned while polling a login flow.
type FlowStatusResponse struct {
	FlowID    string     `json:"flow_id"`
	Status    FlowStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	AccountID string     `json:"account_id,omitempty"`
	Label     string     `json:"label,omitempty"`
}

func (s *Server) handleFlowStatus(w http.ResponseWriter, r *http.Request) {
	flowID := r.PathValue("flow_id")
	res := s.Flows.Poll(r.Context(), flowID)
	out := FlowStatusResponse{FlowID: flowID, Status: res.Status}

	switch res.Status {
	case FlowPending:
	case FlowExpired:
		out.Message = "Login expired or unknown flow id."
	case FlowError:
		out.Message = "OAuth polling error."
	case FlowOK:
		acc, err := s.linker().FromFlow(r.Context(), res.Token)
		if err != nil {
			out.Status = FlowError
			out.Message = err.Error()
			break
		}
		out.AccountID = acc.ID()
		out.Label = acc.Label()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Activity.List()})
}

// WebhookTokenResponse reports the active webhook secret and where it came from.
type WebhookTokenResponse struct {
	Token  string `json:"token"`
	Source string `json:"source,omitempty"`
}

func (s *Server) handleGetWebhookToken(w http.ResponseWriter, r *http.Request) {
	v, ok, err := s.Settings.Get(r.Context(), repositories.SettingWebhookToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load webhook token")
		return
	}
	if ok && v != "" {
		writeJSON(w, http.StatusOK, WebhookTokenResponse{Token: v, Source: "db"})
		return
	}
	writeJSON(w, http.StatusOK, WebhookTokenResponse{Token: s.Config.Server.WebhookToken, Source: "config"})
}

func (s *Server) handleRegenerateWebhookToken(w http.ResponseWriter, r *http.Request) {
	token, err := shared.GenerateToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	if err := s.Settings.Set(r.Context(), repositories.SettingWebhookToken, token); err != nil {
		s.Logger.Error("failed to store webhook token", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store webhook token")
		return
	}
	s.Logger.Info("webhook token regenerated")
	writeJSON(w, http.StatusOK, WebhookTokenResponse{Token: token})
}
