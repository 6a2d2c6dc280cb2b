package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/cma-cli/internal/cma"
	"github.com/sells-group/cma-cli/internal/market"
	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/report"
	"github.com/sells-group/cma-cli/internal/store"
	"github.com/sells-group/cma-cli/internal/valuation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("server: store ping failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"store":  "unreachable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req cma.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Save = true

	outcome, err := s.svc.AnalyzeAddress(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter := store.AnalysisFilter{
		PropertyID: r.URL.Query().Get("property_id"),
		Limit:      queryInt(r, "limit", 10),
		Offset:     queryInt(r, "offset", 0),
	}

	analyses, err := s.svc.History(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Summary rows only; the full result stays behind the detail endpoint.
	for i := range analyses {
		analyses[i].Result = nil
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Analysis(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleAnalysisReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")
	a, err := s.svc.Analysis(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var result valuation.Result
	if err := json.Unmarshal(a.Result, &result); err != nil {
		zap.L().Error("server: stored result unreadable",
			zap.String("analysis_id", id),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "stored result unreadable")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cma-"+id+".xlsx"))
	if err := report.WriteXLSX(w, &result); err != nil {
		// Headers are gone; all we can do is log.
		zap.L().Error("server: write report", zap.String("analysis_id", id), zap.Error(err))
	}
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		model.Property
		Sale *model.Sale `json:"sale,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.svc.CreateProperty(r.Context(), req.Property, req.Sale)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Property(r.Context(), chi.URLParam(r, "propertyID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	filter := store.PropertyFilter{
		PropertyType: model.PropertyType(r.URL.Query().Get("type")),
		Limit:        queryInt(r, "limit", 50),
		Offset:       queryInt(r, "offset", 0),
	}

	props, err := s.svc.Properties(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"properties": props,
		"count":      len(props),
	})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"markets": s.svc.Markets()})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondServiceError maps service errors onto HTTP statuses: invalid
// input and unknown markets are the caller's fault, missing records are
// 404, everything else is a logged 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var unknown *market.UnknownProfileError
	switch {
	case valuation.IsInvalidInput(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unknown):
		respondError(w, http.StatusBadRequest, unknown.Error())
	case cma.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		zap.L().Error("server: request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
