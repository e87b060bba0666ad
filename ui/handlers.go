package ui

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"airhealth/domain/analysis"
	apperrors "airhealth/internal/errors"
)

func (s *Server) handleIndex(c *gin.Context) {
	years, err := s.reader.CachedYears(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list cached years: %v", err)
		c.String(http.StatusInternalServerError, "failed to list cached analyses")
		return
	}
	s.renderTemplate(c, http.StatusOK, "index.html", gin.H{"Years": years})
}

func (s *Server) handleReport(c *gin.Context) {
	year, ok := s.yearParam(c)
	if !ok {
		return
	}
	bundle, ok := s.loadBundle(c, year)
	if !ok {
		return
	}

	rendered := renderMarkdown(s.reporter.Build(bundle))
	s.renderTemplate(c, http.StatusOK, "report.html", gin.H{
		"Year":   year,
		"Report": template.HTML(rendered),
	})
}

func (s *Server) yearParam(c *gin.Context) (int, bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.String(http.StatusBadRequest, "year must be an integer")
		return 0, false
	}
	return year, true
}

// loadBundle reads the cached bundle for year, rendering the miss page or
// an error response itself when there is nothing to show.
func (s *Server) loadBundle(c *gin.Context, year int) (*analysis.AnalysisBundle, bool) {
	bundle, err := s.reader.ReadCached(c.Request.Context(), year)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			s.renderTemplate(c, http.StatusNotFound, "missing.html", gin.H{"Year": year})
			return nil, false
		}
		s.logger.Error("Failed to read bundle for %d: %v", year, err)
		c.String(http.StatusInternalServerError, "failed to read analysis")
		return nil, false
	}
	return bundle, true
}

// renderMarkdown converts the report markdown to HTML with table support.
func renderMarkdown(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return markdown.Render(doc, renderer)
}
