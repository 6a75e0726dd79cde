package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"woovideo/internal/http/handlers"
	"woovideo/internal/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	JWTSecret       string
	AllowedOrigins  []string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	// Middlewares dasar
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	// Health
	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/metrics", app.Metrics)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/api", func(r chi.Router) {
		r.Post("/webhooks/n8n/video", app.N8NVideoCallback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(opts.JWTSecret))

			r.Get("/me", app.Me)
			r.Get("/points", app.Points)
			r.Get("/preferences", app.PreferencesGet)
			r.Put("/preferences", app.PreferencesPut)

			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).
				Post("/videos/generate", app.VideosGenerate)
			r.Get("/videos/status/{job_id}", app.VideoStatus)

			r.Get("/events", app.Events)
			r.Get("/events/ws", app.EventsWS)
		})
	})

	return r
}
