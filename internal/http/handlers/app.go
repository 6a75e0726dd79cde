package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"woovideo/internal/domain"
	"woovideo/internal/events"
	"woovideo/internal/infra"
	"woovideo/internal/middleware"
	"woovideo/internal/n8n"
)

// PreferenceStore reads and writes decrypted per-user preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID int64) (*domain.Preferences, error)
	Save(ctx context.Context, prefs domain.Preferences) error
}

// JobSubmitter hands a job to the generation workflow.
type JobSubmitter interface {
	Submit(ctx context.Context, webhookURL string, req n8n.SubmitRequest) (n8n.SubmitResult, error)
}

type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Users     domain.UserRepository
	Jobs      domain.JobRepository
	Prefs     PreferenceStore
	Submitter JobSubmitter
	Publisher events.Publisher
	Hub       *events.Hub
	Upgrader  websocket.Upgrader

	apiDoc apiDocument
}

func NewApp(cfg *infra.Config, logger zerolog.Logger) *App {
	app := &App{Config: cfg, Logger: logger}
	app.Upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     app.checkOrigin,
	}
	return app
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]errorBody{"error": {Code: errCode, Message: message}})
}

func (a *App) currentUserID(r *http.Request) int64 {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	l := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Int64("user_id", a.currentUserID(r)).
		Logger()
	return &l
}

func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || a.Config == nil {
		return true
	}
	for _, allowed := range a.Config.CORSAllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
