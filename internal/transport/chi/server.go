// Package chi implements the HTTP API: search, trial lookup,
// similarity, filter catalog, health, and metrics.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trialgrid/trialsearch/internal/domain"
	"github.com/trialgrid/trialsearch/internal/domain/entities"
	"github.com/trialgrid/trialsearch/internal/domain/query"
	dsearch "github.com/trialgrid/trialsearch/internal/domain/search"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
	filtersuc "github.com/trialgrid/trialsearch/internal/usecase/filters"
	healthuc "github.com/trialgrid/trialsearch/internal/usecase/health"
	searchuc "github.com/trialgrid/trialsearch/internal/usecase/search"
)

// Error codes returned to clients.
const (
	CodeBadRequest        = "bad_request"
	CodeEmptyQuery        = "empty_query"
	CodeInvalidRequest    = "invalid_request"
	CodeTrialNotFound     = "trial_not_found"
	CodeSearchUnavailable = "search_unavailable"
	CodeInternalError     = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SearchRequest is the POST /api/search payload. Phases and statuses
// union within themselves and intersect with the query.
type SearchRequest struct {
	Query    string   `json:"query"`
	Page     int      `json:"page,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
	Phases   []string `json:"phases,omitempty"`
	Statuses []string `json:"statuses,omitempty"`
	City     string   `json:"city,omitempty"`
	// UseExtraction defaults to true; explicit false skips the
	// language-model entity hints for this request.
	UseExtraction *bool `json:"use_extraction,omitempty"`
}

// HitItem is one matched trial in a search response.
type HitItem struct {
	Trial      trial.Trial         `json:"trial"`
	Score      float64             `json:"score"`
	Tier       string              `json:"tier"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// EntitiesResponse echoes the structured understanding of the query.
type EntitiesResponse struct {
	Phase         string   `json:"phase,omitempty"`
	Status        string   `json:"status,omitempty"`
	StudyType     string   `json:"study_type,omitempty"`
	Conditions    []string `json:"conditions,omitempty"`
	Interventions []string `json:"interventions,omitempty"`
	Sponsors      []string `json:"sponsors,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

// SearchResponse is the POST /api/search reply. Results paginate the
// exact tier; similar hits come whole in their own field.
type SearchResponse struct {
	Results    []HitItem         `json:"results"`
	Similar    []HitItem         `json:"similar,omitempty"`
	Total      int               `json:"total_results"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	SearchType string            `json:"search_type"`
	TookMs     int64             `json:"took_ms"`
	Entities   *EntitiesResponse `json:"extracted_entities,omitempty"`
}

// SimilarResponse is the GET /api/trials/{nct_id}/similar reply.
type SimilarResponse struct {
	Items []HitItem `json:"items"`
	Total int       `json:"total"`
}

// FilterValue is one filter option with its trial count.
type FilterValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FiltersResponse is the GET /api/filters reply.
type FiltersResponse struct {
	Phases     []FilterValue `json:"phases"`
	Statuses   []FilterValue `json:"statuses"`
	StudyTypes []FilterValue `json:"study_types"`
	Conditions []FilterValue `json:"conditions"`
	Sponsors   []FilterValue `json:"sponsors"`
}

// HealthResponse is the GET /health reply.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecase services into HTTP handlers.
type Server struct {
	search        *searchuc.Service
	filters       *filtersuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	filters *filtersuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:  search,
		filters: filters,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeEmptyQuery),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest),
		sentinelHandler(domain.ErrTrialNotFound, http.StatusNotFound, CodeTrialNotFound),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, CodeSearchUnavailable),
	}
	return s
}

// Register mounts all routes on the given router.
func (s *Server) Register(r chi.Router) {
	r.Post("/api/search", s.Search)
	r.Get("/api/trials/{nctID}", s.GetTrial)
	r.Get("/api/trials/{nctID}/similar", s.Similar)
	r.Get("/api/filters", s.Filters)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	page, ents, err := s.search.Search(r.Context(), searchuc.Request{
		Query:          req.Query,
		Page:           req.Page,
		PageSize:       req.PageSize,
		SkipExtraction: req.UseExtraction != nil && !*req.UseExtraction,
		Filters: query.Filters{
			Phases:   req.Phases,
			Statuses: req.Statuses,
			City:     req.City,
		},
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := searchResponseFrom(page, ents)
	resp.TookMs = time.Since(start).Milliseconds()
	writeJSON(w, http.StatusOK, resp)
}

// GetTrial handles GET /api/trials/{nctID}.
func (s *Server) GetTrial(w http.ResponseWriter, r *http.Request) {
	nctID := chi.URLParam(r, "nctID")

	t, err := s.search.Get(r.Context(), nctID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// Similar handles GET /api/trials/{nctID}/similar.
func (s *Server) Similar(w http.ResponseWriter, r *http.Request) {
	nctID := chi.URLParam(r, "nctID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	hits, err := s.search.Similar(r.Context(), nctID, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SimilarResponse{
		Items: hitItemsFrom(hits),
		Total: len(hits),
	})
}

// Filters handles GET /api/filters.
func (s *Server) Filters(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.filters.Catalog(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FiltersResponse{
		Phases:     filterValuesFrom(catalog.Phases),
		Statuses:   filterValuesFrom(catalog.Statuses),
		StudyTypes: filterValuesFrom(catalog.StudyTypes),
		Conditions: filterValuesFrom(catalog.Conditions),
		Sponsors:   filterValuesFrom(catalog.Sponsors),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func searchResponseFrom(page *dsearch.Page, ents entities.Normalized) SearchResponse {
	resp := SearchResponse{
		Results:    hitItemsFrom(page.Hits),
		Similar:    hitItemsFrom(page.Similar),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		SearchType: string(page.SearchType),
	}
	if !ents.IsEmpty() {
		resp.Entities = &EntitiesResponse{
			Phase:         ents.Phase,
			Status:        ents.Status,
			StudyType:     ents.StudyType,
			Conditions:    ents.Conditions,
			Interventions: ents.Interventions,
			Sponsors:      ents.Sponsors,
			Locations:     ents.Locations,
			Keywords:      ents.Keywords,
		}
	}
	return resp
}

func hitItemsFrom(hits []dsearch.Hit) []HitItem {
	items := make([]HitItem, len(hits))
	for i, h := range hits {
		items[i] = HitItem{
			Trial:      h.Trial,
			Score:      h.Score,
			Tier:       string(h.Tier),
			Highlights: h.Highlights,
		}
	}
	return items
}

func filterValuesFrom(values []filtersuc.Value) []FilterValue {
	out := make([]FilterValue, len(values))
	for i, v := range values {
		out[i] = FilterValue{Value: v.Value, Count: v.Count}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyQuery,
		domain.ErrInvalidRequest,
		domain.ErrTrialNotFound,
		domain.ErrSearchUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
