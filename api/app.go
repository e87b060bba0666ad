package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"airhealth/domain/analysis"
	"airhealth/internal"
	apperrors "airhealth/internal/errors"
)

// Analyzer is the slice of the orchestrator the HTTP facade drives.
type Analyzer interface {
	Compute(ctx context.Context, year int, force bool) (*analysis.AnalysisBundle, error)
	ReadCached(ctx context.Context, year int) (*analysis.AnalysisBundle, error)
	CachedYears(ctx context.Context) ([]int, error)
}

// devOrigins are the dashboard dev servers allowed through CORS.
var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:3000",
}

// Config holds API server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MetricsEnabled bool
}

// App is the JSON API application.
type App struct {
	router   *chi.Mux
	config   Config
	analyzer Analyzer
	logger   *internal.Logger
}

// NewApp creates the API application with its routes and middleware wired.
func NewApp(config Config, analyzer Analyzer, logger *internal.Logger) *App {
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = devOrigins
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	app := &App{
		router:   chi.NewRouter(),
		config:   config,
		analyzer: analyzer,
		logger:   logger,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
	a.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleRoot)
	a.router.Get("/api/health", a.handleHealth)
	a.router.Post("/api/compute", a.handleCompute)
	a.router.Get("/api/analysis/{year}", a.handleAnalysis)
	a.router.Get("/api/analysis", a.handleCachedYears)

	if a.config.MetricsEnabled {
		a.router.Handle("/metrics", promhttp.Handler())
	}
}

// Start starts the HTTP server
func (a *App) Start() error {
	a.logger.Info("Analysis API listening on %s", a.config.Addr)
	return http.ListenAndServe(a.config.Addr, a.router)
}

// Handler exposes the router, mainly for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to encode response: %v", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, status int, code, message string) {
	a.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// writeAppError maps the error taxonomy onto HTTP statuses.
func (a *App) writeAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeValidationError:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeRateLimited:
		status = http.StatusTooManyRequests
	case apperrors.CodeDataSourceUnavailable:
		status = http.StatusServiceUnavailable
	}

	message := "internal error"
	if appErr, ok := err.(*apperrors.AppError); ok {
		message = appErr.Message
	}
	if status >= 500 {
		a.logger.Error("Request failed: %v", err)
	}

	a.writeError(w, status, code, message)
}
