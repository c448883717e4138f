// Package httpapi assembles the chi router for the studio API.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sellerstudio/internal/http/handlers"
	"sellerstudio/internal/infra"
	"sellerstudio/internal/middleware"
)

// Options carries the router configuration.
type Options struct {
	Logger          infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/categories", app.Categories)

	r.Route("/v1/products", func(r chi.Router) {
		r.Post("/", app.UploadProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetProduct)
			r.Post("/previews", app.GeneratePreviews)
			r.Post("/previews/{index}/select", app.SelectPreview)
			r.Post("/tryon", app.RunTryOn)
		})
	})

	r.Get("/v1/assets/{session}/{key}", app.Asset)

	return r
}
