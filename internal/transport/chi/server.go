// Package chi is the HTTP transport: routing, request decoding, and the
// mapping of domain errors onto status codes.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/advisor"
	"github.com/nidhi-ai/nidhi/internal/domain"
	"github.com/nidhi-ai/nidhi/internal/finance"
	"github.com/nidhi-ai/nidhi/internal/ingest"
	"github.com/nidhi-ai/nidhi/internal/retrieval"
)

// Error codes in the JSON error envelope.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeDocumentNotFound = "document_not_found"
	codeVectorDim        = "vector_dim_mismatch"
	codeEmbeddingError   = "embedding_provider_error"
	codeInternalError    = "internal_error"
)

const degradedDisclaimer = "The AI service is temporarily unavailable. " +
	"This is general guidance, not personalized financial advice."

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the application services into HTTP handlers.
type Server struct {
	advisor       *advisor.Service
	ingest        *ingest.Service
	retrieval     *retrieval.Engine
	market        *finance.MarketClient
	pinger        Pinger
	logger        *zap.Logger
	defaultTopK   int
	errorHandlers []errorHandler
}

func NewServer(
	adv *advisor.Service,
	ing *ingest.Service,
	ret *retrieval.Engine,
	market *finance.MarketClient,
	pinger Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		advisor:     adv,
		ingest:      ing,
		retrieval:   ret,
		market:      market,
		pinger:      pinger,
		logger:      logger,
		defaultTopK: 5,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDim),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingError),
	}
	return s
}

// WithDefaultTopK overrides the search result count used when the request
// omits k.
func (s *Server) WithDefaultTopK(k int) *Server {
	if k > 0 {
		s.defaultTopK = k
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", s.Chat)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.UploadDocument)
			r.Get("/", s.ListDocuments)
			r.Delete("/{id}", s.DeleteDocument)
			r.Post("/reindex", s.Reindex)
		})

		r.Get("/search", s.Search)
		r.Get("/stats", s.Stats)

		r.Route("/calculators", func(r chi.Router) {
			r.Post("/emi", s.CalculateEMI)
			r.Post("/sip", s.CalculateSIP)
			r.Post("/compound-interest", s.CalculateCompound)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/rates", s.Rates)
			r.Get("/crypto/{id}", s.Crypto)
		})
	})
}

type chatRequest struct {
	Message      string `json:"message"`
	DocumentText string `json:"document_text,omitempty"`
	DocumentID   string `json:"document_id,omitempty"`
}

type chatResponse struct {
	Response   string `json:"response"`
	Degraded   bool   `json:"degraded"`
	Reason     string `json:"reason,omitempty"`
	Disclaimer string `json:"disclaimer,omitempty"`
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Message is required")
		return
	}

	var filter map[string]string
	if req.DocumentID != "" {
		filter = map[string]string{"document_id": req.DocumentID}
	}
	outcome := s.advisor.Generate(r.Context(), advisor.Request{
		Query:        req.Message,
		DocumentText: req.DocumentText,
		Filter:       filter,
	})

	resp := chatResponse{
		Response: outcome.Text,
		Degraded: outcome.Degraded(),
	}
	if outcome.Degraded() {
		resp.Reason = string(outcome.Reason)
		resp.Disclaimer = degradedDisclaimer
	}
	writeJSON(w, http.StatusOK, resp)
}

type uploadRequest struct {
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
	Content  string `json:"content"`
}

// UploadDocument handles POST /api/v1/documents.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	info, err := s.ingest.Ingest(r.Context(), req.Filename, req.FileType, req.Content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	infos, err := s.ingest.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if infos == nil {
		infos = []domain.DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": infos})
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reindex handles POST /api/v1/documents/reindex.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Reindex(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Query parameter q is required")
		return
	}

	k := s.defaultTopK
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "k must be an integer")
			return
		}
		k = parsed
	}

	var filter map[string]string
	if docID := r.URL.Query().Get("document_id"); docID != "" {
		filter = map[string]string{"document_id": docID}
	}

	results, err := s.retrieval.Search(r.Context(), query, k, filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if results == nil {
		results = []domain.RetrievalResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingest.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type emiRequest struct {
	Principal   float64 `json:"principal"`
	Rate        float64 `json:"rate"`
	TenureYears int     `json:"tenure_years"`
}

// CalculateEMI handles POST /api/v1/calculators/emi.
func (s *Server) CalculateEMI(w http.ResponseWriter, r *http.Request) {
	var req emiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := finance.EMI(req.Principal, req.Rate, req.TenureYears)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type sipRequest struct {
	MonthlyAmount float64 `json:"monthly_amount"`
	Rate          float64 `json:"rate"`
	Years         int     `json:"years"`
}

// CalculateSIP handles POST /api/v1/calculators/sip.
func (s *Server) CalculateSIP(w http.ResponseWriter, r *http.Request) {
	var req sipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := finance.SIP(req.MonthlyAmount, req.Rate, req.Years)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type compoundRequest struct {
	Principal float64 `json:"principal"`
	Rate      float64 `json:"rate"`
	Years     int     `json:"years"`
	Frequency string  `json:"compound_frequency"`
}

// CalculateCompound handles POST /api/v1/calculators/compound-interest.
func (s *Server) CalculateCompound(w http.ResponseWriter, r *http.Request) {
	var req compoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Frequency == "" {
		req.Frequency = "annually"
	}

	result, err := finance.CompoundInterest(req.Principal, req.Rate, req.Years, req.Frequency)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Rates handles GET /api/v1/market/rates.
func (s *Server) Rates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.market.Rates(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

// Crypto handles GET /api/v1/market/crypto/{id}.
func (s *Server) Crypto(w http.ResponseWriter, r *http.Request) {
	data, err := s.market.Crypto(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Warn("Crypto lookup failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, codeInternalError, "market data unavailable")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrInvalidArgument,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler matching a single sentinel error.
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
