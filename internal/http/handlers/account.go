package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"woovideo/internal/domain"
	"woovideo/internal/infra/credentials"
)

type meResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	PointsBalance int64  `json:"points_balance"`
}

func (a *App) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, meResponse{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		PointsBalance: user.PointsBalance,
	})
}

func (a *App) Points(w http.ResponseWriter, r *http.Request) {
	user, ok := a.loadUser(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, map[string]int64{"balance": user.PointsBalance})
}

func (a *App) loadUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return nil, false
	}
	user, err := a.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "user not found")
			return nil, false
		}
		a.log(r).Error().Err(err).Msg("load user")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load user")
		return nil, false
	}
	return user, true
}

type preferencesResponse struct {
	WebhookURL        string     `json:"webhook_url"`
	StoreURL          string     `json:"store_url"`
	ConsumerKey       string     `json:"consumer_key"`
	ConsumerSecret    string     `json:"consumer_secret"`
	GenerationEnabled bool       `json:"generation_enabled"`
	PublishingEnabled bool       `json:"publishing_enabled"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// preferencesRequest leaves a field unchanged when it is omitted.
type preferencesRequest struct {
	WebhookURL     *string `json:"webhook_url"`
	StoreURL       *string `json:"store_url"`
	ConsumerKey    *string `json:"consumer_key"`
	ConsumerSecret *string `json:"consumer_secret"`
}

func (a *App) PreferencesGet(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	prefs, err := a.Prefs.Get(r.Context(), userID)
	if err != nil {
		a.log(r).Error().Err(err).Msg("load preferences")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load preferences")
		return
	}
	a.json(w, http.StatusOK, preferencesView(prefs))
}

func (a *App) PreferencesPut(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req preferencesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	current, err := a.Prefs.Get(r.Context(), userID)
	if err != nil {
		a.log(r).Error().Err(err).Msg("load preferences")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load preferences")
		return
	}
	next := *current
	next.UserID = userID
	if req.WebhookURL != nil {
		next.WebhookURL = *req.WebhookURL
	}
	if req.StoreURL != nil {
		next.StoreURL = *req.StoreURL
	}
	if req.ConsumerKey != nil {
		next.ConsumerKey = strings.TrimSpace(*req.ConsumerKey)
	}
	if req.ConsumerSecret != nil {
		next.ConsumerSecret = strings.TrimSpace(*req.ConsumerSecret)
	}
	if err := a.Prefs.Save(r.Context(), next); err != nil {
		if errors.Is(err, credentials.ErrInvalidURL) {
			a.error(w, http.StatusBadRequest, "invalid_url", "webhook_url and store_url must be absolute http(s) URLs")
			return
		}
		a.log(r).Error().Err(err).Msg("save preferences")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save preferences")
		return
	}
	saved, err := a.Prefs.Get(r.Context(), userID)
	if err != nil {
		saved = &next
	}
	a.json(w, http.StatusOK, preferencesView(saved))
}

func preferencesView(p *domain.Preferences) preferencesResponse {
	resp := preferencesResponse{
		WebhookURL:        p.WebhookURL,
		StoreURL:          p.StoreURL,
		ConsumerKey:       maskSecret(p.ConsumerKey),
		ConsumerSecret:    maskSecret(p.ConsumerSecret),
		GenerationEnabled: p.GenerationEnabled(),
		PublishingEnabled: p.PublishingEnabled(),
	}
	if !p.UpdatedAt.IsZero() {
		updated := p.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

// maskSecret keeps the last four characters of long secrets.
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
