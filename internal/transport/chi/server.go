package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scholarmesh/paperdex/internal/domain"
	dombatch "github.com/scholarmesh/paperdex/internal/domain/batch"
	answeruc "github.com/scholarmesh/paperdex/internal/usecase/answer"
	collectionuc "github.com/scholarmesh/paperdex/internal/usecase/collection"
	documentuc "github.com/scholarmesh/paperdex/internal/usecase/document"
	healthuc "github.com/scholarmesh/paperdex/internal/usecase/health"
	searchuc "github.com/scholarmesh/paperdex/internal/usecase/search"
	usageuc "github.com/scholarmesh/paperdex/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the REST API.
type Server struct {
	collections   *collectionuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	answer        *answeruc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections *collectionuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	answer *answeruc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		collections: collections,
		documents:   documents,
		search:      search,
		answer:      answer,
		usage:       usage,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeCollectionExists),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusBadRequest, codeDimensionMismatch),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrKeywordSearchNotSupported, http.StatusNotImplemented, codeKeywordUnsupported),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
	}
	return s
}

// Routes mounts all API routes on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/collections", func(r chi.Router) {
			r.Post("/", s.CreateCollection)
			r.Get("/", s.ListCollections)
			r.Get("/stats", s.CollectionStats)

			r.Route("/{collection}", func(r chi.Router) {
				r.Get("/", s.GetCollection)
				r.Delete("/", s.DeleteCollection)
				r.Post("/search", s.SearchDocuments)
				r.Post("/reset", s.ResetCollection)

				r.Route("/documents", func(r chi.Router) {
					r.Post("/", s.IngestDocuments)
					r.Get("/", s.ListDocuments)
					r.Get("/count", s.CountDocuments)
					r.Get("/{id}", s.GetDocument)
					r.Delete("/{id}", s.DeleteDocument)
				})
			})
		})

		r.Post("/ask", s.Ask)
		r.Get("/usage", s.GetUsage)
	})
}

// CreateCollection handles POST /api/v1/collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Collection name is required")
		return
	}

	fields, err := fieldsFromDTO(req.Fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	col, err := s.collections.Create(r.Context(), req.Name, fields)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, collectionToDTO(col))
}

// ListCollections handles GET /api/v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]collectionResponse, len(cols))
	for i, c := range cols {
		items[i] = collectionToDTO(c)
	}

	writeJSON(w, http.StatusOK, collectionListResponse{Items: items})
}

// CollectionStats handles GET /api/v1/collections/stats.
func (s *Server) CollectionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.collections.Statistics(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]collectionStatsItem, len(stats))
	for i, st := range stats {
		items[i] = collectionStatsItem{
			Name:             st.Name,
			Documents:        st.Documents,
			VectorDimensions: st.VectorDim,
		}
	}

	writeJSON(w, http.StatusOK, collectionStatsResponse{Collections: items})
}

// GetCollection handles GET /api/v1/collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	col, err := s.collections.Get(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := collectionToDTO(col)

	count, err := s.documents.Count(r.Context(), name)
	if err == nil {
		resp.DocumentCount = &count
	}

	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(col.Revision())))
	writeJSON(w, http.StatusOK, resp)
}

// DeleteCollection handles DELETE /api/v1/collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Delete(r.Context(), chi.URLParam(r, "collection")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IngestDocuments handles POST /api/v1/collections/{collection}/documents.
func (s *Server) IngestDocuments(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "at least one document is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.documents.Ingest(ctx, chi.URLParam(r, "collection"), ingestDocsFromDTO(req.Documents))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	succeeded, failed := 0, 0
	items := make([]batchResultDTO, len(results))
	for i, res := range results {
		items[i] = batchResultToDTO(res)
		if res.Status() == dombatch.StatusOK {
			succeeded++
		} else {
			failed++
		}
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ingestResponse{
		Items:     items,
		Succeeded: succeeded,
		Failed:    failed,
	})
}

// ListDocuments handles GET /api/v1/collections/{collection}/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}

	docs, nextCursor, err := s.documents.List(r.Context(), chi.URLParam(r, "collection"), cursor, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i := range docs {
		items[i] = documentToDTO(&docs[i])
	}

	resp := documentListResponse{
		Items:   items,
		HasMore: nextCursor != "",
	}
	if nextCursor != "" {
		resp.NextCursor = &nextCursor
	}

	writeJSON(w, http.StatusOK, resp)
}

// CountDocuments handles GET /api/v1/collections/{collection}/documents/count.
func (s *Server) CountDocuments(w http.ResponseWriter, r *http.Request) {
	count, err := s.documents.Count(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// GetDocument handles GET /api/v1/collections/{collection}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(doc.Revision())))
	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// DeleteDocument handles DELETE /api/v1/collections/{collection}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetCollection handles POST /api/v1/collections/{collection}/reset.
func (s *Server) ResetCollection(w http.ResponseWriter, r *http.Request) {
	removed, err := s.documents.Reset(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resetResponse{Removed: removed})
}

// SearchDocuments handles POST /api/v1/collections/{collection}/search.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	searchReq, err := searchRequestFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.search.Search(ctx, chi.URLParam(r, "collection"), &searchReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := searchResultsToDTO(results)

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResponse{
		Items: items,
		Total: len(items),
	})
}

// Ask handles POST /api/v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Question is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.answer.Ask(ctx, askRequestFromDTO(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, askResponse{
		Answer:           resp.Answer,
		Status:           string(resp.Status),
		Papers:           searchResultsToDTO(resp.Papers),
		Faculty:          searchResultsToDTO(resp.Faculty),
		InputTokens:      resp.InputTokens,
		OutputTokens:     resp.OutputTokens,
		EstimatedCostUSD: resp.EstimatedCost,
	})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	totals, err := s.usage.Totals(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		InputTokens:      totals.InputTokens(),
		OutputTokens:     totals.OutputTokens(),
		Requests:         totals.Requests(),
		EstimatedCostUSD: totals.CostUSD(),
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

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrCollectionNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrAlreadyExists,
		domain.ErrDimensionMismatch,
		domain.ErrInvalidSchema,
		domain.ErrRateLimited,
		domain.ErrEmbeddingUnavailable,
		domain.ErrKeywordSearchNotSupported,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// domainErrorCode maps a sentinel error to its response code.
func domainErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrCollectionNotFound):
		return codeCollectionNotFound
	case errors.Is(err, domain.ErrDocumentNotFound):
		return codeDocumentNotFound
	case errors.Is(err, domain.ErrDimensionMismatch):
		return codeDimensionMismatch
	case errors.Is(err, domain.ErrInvalidSchema):
		return codeValidationFailed
	case errors.Is(err, domain.ErrRateLimited):
		return codeRateLimited
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return codeEmbeddingError
	default:
		return codeInternalError
	}
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
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
