// Package api exposes the kitchen service over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eleven-am/foodgram/internal/kitchen"
	"github.com/eleven-am/foodgram/internal/logger"
)

// DefaultRequestTimeout bounds each request's context
const DefaultRequestTimeout = 30 * time.Second

// Server routes HTTP requests to a kitchen.Service
type Server struct {
	svc      *kitchen.Service
	router   chi.Router
	registry *prometheus.Registry
	metrics  *HTTPMetrics
	health   func(context.Context) error
	mediaURL string
	mediaDir string
	timeout  time.Duration
	log      logger.Logger
}

// Option configures a Server
type Option func(*Server)

// WithRegistry exposes reg on /metrics and records HTTP metrics into it
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithHealthCheck serves /healthz from check
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithMediaDir serves files under dir at urlPrefix
func WithMediaDir(urlPrefix, dir string) Option {
	return func(s *Server) {
		s.mediaURL = urlPrefix
		s.mediaDir = dir
	}
}

// WithRequestTimeout overrides DefaultRequestTimeout
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewServer builds the router. It fails only when the metrics collectors
// cannot be registered.
func NewServer(svc *kitchen.Service, opts ...Option) (*Server, error) {
	s := &Server{
		svc:     svc,
		timeout: DefaultRequestTimeout,
		log:     logger.HTTP(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.registry != nil {
		metrics, err := NewHTTPMetrics(s.registry)
		if err != nil {
			return nil, err
		}
		s.metrics = metrics
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if s.health != nil {
		r.Get("/healthz", s.healthz)
	}
	if s.mediaDir != "" {
		prefix := "/" + strings.Trim(s.mediaURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(s.mediaDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))
		r.Use(identity)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.listRecipes)
			r.Post("/", s.createRecipe)
			r.Get("/download_shopping_cart", s.downloadShoppingCart)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getRecipe)
				r.Patch("/", s.updateRecipe)
				r.Delete("/", s.deleteRecipe)

				favorite := s.recipeRelation(kitchen.Favorite)
				r.Post("/favorite", favorite)
				r.Delete("/favorite", favorite)

				cart := s.recipeRelation(kitchen.Cart)
				r.Post("/shopping_cart", cart)
				r.Delete("/shopping_cart", cart)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.listUsers)
			r.Post("/", s.registerUser)
			r.Get("/me", s.me)
			r.Post("/set_password", s.setPassword)
			r.Get("/subscriptions", s.listSubscriptions)
			r.Get("/{id}", s.getUser)
			r.Post("/{id}/subscribe", s.subscribe)
			r.Delete("/{id}/subscribe", s.subscribe)
		})

		r.Post("/auth/verify", s.verifyCredentials)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.listTags)
			r.Post("/", s.createTag)
			r.Get("/{id}", s.getTag)
		})

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", s.listIngredients)
			r.Post("/", s.createIngredient)
			r.Get("/{id}", s.getIngredient)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.health(r.Context()); err != nil {
		s.log.WithError(err).Warn("health check failed")
		writeMessage(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
