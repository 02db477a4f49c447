// Package http provides the HTTP delivery layer of the shortlinks service:
// the public redirect endpoint and the bearer-protected management API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlinks/docs"
	"github.com/vadimbarashkov/shortlinks/internal/metrics"
	"github.com/vadimbarashkov/shortlinks/pkg/middleware/bearer"
	"github.com/vadimbarashkov/shortlinks/pkg/middleware/recoverer"

	httpSwagger "github.com/swaggo/http-swagger"
)

type RouterConfig struct {
	// APIToken guards /api/url-mappings.
	APIToken string
	// AllowedOrigins are the CORS origins of /api.
	AllowedOrigins []string
	// Metrics is optional. When set, requests are instrumented and /api/metrics is served.
	Metrics *metrics.Metrics
}

// NewRouter builds the service router. Every non-redirect route lives under
// the reserved /api prefix so no slug can shadow it.
func NewRouter(logger *httplog.Logger, useCase urlMappingUseCase, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	var redirects redirectObserver = noopObserver{}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		redirects = cfg.Metrics
	}

	h := newURLMappingHandler(useCase, newValidator(), redirects)

	r.Get("/{slug}", h.redirect)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"POST", "GET", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           84600,
		}))

		r.Get("/ping", handlePing)

		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/api/docs/swagger.yml"),
		))

		r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			w.Write(docs.SwaggerYAML)
		})

		if cfg.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
		}

		r.Route("/url-mappings", func(r chi.Router) {
			r.Use(bearer.New(cfg.APIToken))
			r.Use(middleware.AllowContentType("application/json"))

			r.Get("/", h.listMappings)
			r.Post("/", h.createMapping)

			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", h.getMapping)
				r.Put("/", h.updateMapping)
				r.Delete("/", h.deleteMapping)
			})
		})
	})

	return r
}
