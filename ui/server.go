package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin"

	"airhealth/domain/analysis"
	"airhealth/internal"
	"airhealth/internal/report"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// BundleReader is the read-only facade slice the dashboard consumes. The
// dashboard never computes; it renders whatever the cache already holds.
type BundleReader interface {
	ReadCached(ctx context.Context, year int) (*analysis.AnalysisBundle, error)
	CachedYears(ctx context.Context) ([]int, error)
}

// Server is the dashboard web application.
type Server struct {
	router    *gin.Engine
	reader    BundleReader
	reporter  *report.Builder
	templates *template.Template
	logger    *internal.Logger
}

// NewServer creates the dashboard server with templates parsed and routes
// registered.
func NewServer(reader BundleReader, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	templates, err := template.ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    gin.New(),
		reader:    reader,
		reporter:  report.NewBuilder(),
		templates: templates,
		logger:    logger,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/report/:year", s.handleReport)
	s.router.GET("/charts/:year", s.handleCharts)
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	s.logger.Info("Dashboard listening on http://%s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

func (s *Server) renderTemplate(c *gin.Context, status int, templateName string, data interface{}) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := s.templates.ExecuteTemplate(c.Writer, templateName, data); err != nil {
		s.logger.Error("Template error: %v", err)
		c.AbortWithStatus(500)
	}
}
