// CineMatch - Hybrid Movie Recommendation Service
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/database"
	"github.com/cinematch/cinematch/internal/docstore"
	"github.com/cinematch/cinematch/internal/middleware"
	"github.com/cinematch/cinematch/internal/recommend"
)

// Server holds the dependencies of the REST API.
type Server struct {
	cfg      config.ServerConfig
	db       *database.DB
	store    *docstore.Store
	engine   *recommend.Engine
	validate *validator.Validate
}

// NewServer creates the API server.
func NewServer(cfg config.ServerConfig, db *database.DB, store *docstore.Store, engine *recommend.Engine) *Server {
	return &Server{
		cfg:      cfg,
		db:       db,
		store:    store,
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	rateLimit := s.cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 100
	}
	rateWindow := s.cfg.RateLimitWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimit*10, rateWindow))
		r.Get("/", s.handleHealth)
		r.Get("/live", s.handleLive)
		r.Get("/ready", s.handleReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rateLimit, rateWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/movies", s.handleListMovies)
		r.Get("/movies/{movieID}", s.handleGetMovie)
		r.Get("/movies/{movieID}/similar", s.handleContentRecommend)
		r.Get("/users", s.handleListUsers)
		r.Get("/users/{userID}/ratings", s.handleUserRatings)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/content", s.handleContentRecommendByTitle)
			r.Get("/content/{movieID}", s.handleContentRecommend)
			r.Get("/collaborative/{userID}", s.handleCollaborativeRecommend)
			r.Get("/similar-users/{userID}", s.handleSimilarUsers)
			r.Get("/status", s.handleTrainingStatus)
			r.Post("/train", s.handleTrain)
		})

		r.Post("/feedback", s.handlePostFeedback)
		r.Get("/feedback", s.handleListFeedback)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
