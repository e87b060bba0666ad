package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "airhealth/internal/errors"
)

type computeRequest struct {
	Year           int  `json:"year"`
	ForceRecompute bool `json:"force_recompute"`
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"message": "PM2.5 Analysis API",
		"status":  "running",
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (a *App) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, apperrors.CodeInvalidInput,
			"request body must be JSON with a year field")
		return
	}
	if err := validateYear(req.Year); err != nil {
		a.writeAppError(w, err)
		return
	}

	bundle, err := a.analyzer.Compute(r.Context(), req.Year, req.ForceRecompute)
	if err != nil {
		a.writeAppError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, bundle)
}

func (a *App) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, apperrors.CodeInvalidInput,
			"year must be an integer")
		return
	}

	bundle, err := a.analyzer.ReadCached(r.Context(), year)
	if err != nil {
		a.writeAppError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, bundle)
}

func (a *App) handleCachedYears(w http.ResponseWriter, r *http.Request) {
	years, err := a.analyzer.CachedYears(r.Context())
	if err != nil {
		a.writeAppError(w, err)
		return
	}
	if years == nil {
		years = []int{}
	}
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"years": years})
}

// validateYear bounds requested years to the plausible data window.
func validateYear(year int) error {
	if year == 0 {
		return apperrors.InvalidInput("year is required")
	}
	if year < 2000 || year > 2100 {
		return apperrors.InvalidInput("year must be between 2000 and 2100")
	}
	return nil
}
