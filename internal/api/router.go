package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/mcoot/mahjongtracker/internal/api/apierr"
	"github.com/mcoot/mahjongtracker/internal/api/handler"
	apimiddleware "github.com/mcoot/mahjongtracker/internal/api/middleware"
	"github.com/mcoot/mahjongtracker/internal/api/response"
	"github.com/mcoot/mahjongtracker/internal/metrics"
	"github.com/mcoot/mahjongtracker/internal/middleware"
	"github.com/mcoot/mahjongtracker/internal/services/auth"
	"github.com/mcoot/mahjongtracker/internal/services/game"
	"github.com/mcoot/mahjongtracker/internal/services/player"
	"github.com/mcoot/mahjongtracker/internal/services/result"
	"github.com/mcoot/mahjongtracker/internal/services/stats"
)

// RateLimitConfig limits auth requests per client IP. A zero value disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	AuthService     *auth.Service
	PlayerRegistry  *player.Registry
	StatsAggregator *stats.Aggregator
	GameController  *game.Controller
	ResultRecorder  *result.Recorder
	RateLimit       RateLimitConfig
	// StaticDir is served at / when it exists
	StaticDir   string
	CORSOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	playerHandler := handler.NewPlayerHandler(cfg.PlayerRegistry, cfg.StatsAggregator)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.ResultRecorder)

	// Common middleware, outermost first
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger, func(w http.ResponseWriter, r *http.Request, _ any) {
		apierr.WriteError(w, r, apierr.NewInternalError())
	}))
	r.Use(middleware.Logging(cfg.Logger, cfg.Metrics))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(apimiddleware.Identity(cfg.AuthService))

	// Auth routes
	authRoutes := api.PathPrefix("/auth").Subrouter()
	if cfg.RateLimit.RequestsPerSecond > 0 && cfg.RateLimit.Burst > 0 {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		authRoutes.Use(apimiddleware.RateLimit(limiter))
	}
	authRoutes.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	authRoutes.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)

	// Player routes; listing and creating are scoped to the logged in user
	api.Handle("/players", apimiddleware.RequireUser(http.HandlerFunc(playerHandler.Create))).Methods(http.MethodPost)
	api.Handle("/players", apimiddleware.RequireUser(http.HandlerFunc(playerHandler.List))).Methods(http.MethodGet)
	api.HandleFunc("/players/{id:[0-9]+}/stats", playerHandler.Stats).Methods(http.MethodGet)

	// Game routes
	api.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/games/{code}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{code}/join", gameHandler.Join).Methods(http.MethodPost)
	api.HandleFunc("/games/{code}/result", gameHandler.RecordResult).Methods(http.MethodPost)
	api.HandleFunc("/games/{code}/results", gameHandler.Results).Methods(http.MethodGet)
	api.Handle("/games/{code}/close", apimiddleware.RequireUser(http.HandlerFunc(gameHandler.Close))).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Unknown API paths get a JSON 404 rather than the static file server
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, r, apierr.NewNotFoundError())
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	if info, err := os.Stat(cfg.StaticDir); cfg.StaticDir != "" && err == nil && info.IsDir() {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, r, apierr.NewNotFoundError())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteError(w, r, apierr.NewMethodNotAllowedError())
	})

	return middleware.CORS(cfg.CORSOrigins)(r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, response.Health{Status: "ok"})
}
