package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fashionvista/fashionvista/internal/api/response"
	"github.com/fashionvista/fashionvista/internal/store"
	"github.com/fashionvista/fashionvista/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

var validStatuses = map[string]bool{
	models.AnalysisStatusPending:    true,
	models.AnalysisStatusSucceeded:  true,
	models.AnalysisStatusFailed:     true,
	models.AnalysisStatusSuperseded: true,
}

// NewListAnalysesHandler returns an http.HandlerFunc for GET /api/v1/analyses.
func NewListAnalysesHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := intParam(q.Get("page"), 1)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return
		}
		limit, err := intParam(q.Get("limit"), defaultPageLimit)
		if err != nil || limit < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
			return
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		status := q.Get("status")
		if status != "" && !validStatuses[status] {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown status filter",
				map[string]string{"status": status})
			return
		}

		analyses, total, err := s.ListAnalyses(r.Context(), store.AnalysisFilter{
			ImageURL:  q.Get("image_url"),
			SessionID: q.Get("session_id"),
			Status:    status,
			Page:      page,
			Limit:     limit,
		})
		if err != nil {
			slog.Error("list analyses failed", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list analyses", nil)
			return
		}
		if analyses == nil {
			analyses = []*models.Analysis{}
		}

		response.Collection(w, analyses, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewGetAnalysisHandler returns an http.HandlerFunc for GET /api/v1/analyses/{analysisID}.
func NewGetAnalysisHandler(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "analysisID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "analysisID must be a uuid", nil)
			return
		}

		a, err := s.GetAnalysis(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Analysis not found", nil)
			return
		}
		if err != nil {
			slog.Error("get analysis failed", "analysis_id", id, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load analysis", nil)
			return
		}

		response.JSON(w, a)
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
