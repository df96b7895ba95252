package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/emredev/trendyol-listing-extractor/internal/extractor"
	"github.com/emredev/trendyol-listing-extractor/internal/models"
	"github.com/emredev/trendyol-listing-extractor/internal/ratelimit"
)

type Handlers struct {
	extractor *extractor.Service
	limiter   ratelimit.Limiter
	logger    *slog.Logger
}

func NewHandlers(extractorService *extractor.Service, limiter ratelimit.Limiter, logger *slog.Logger) *Handlers {
	return &Handlers{
		extractor: extractorService,
		limiter:   limiter,
		logger:    logger.With("component", "api"),
	}
}

// ExtractRequest asks for one product page to be extracted.
type ExtractRequest struct {
	URL string `json:"url"`
}

// ExtractResponse carries the extracted record. The extraction id ties a
// response to the server logs.
type ExtractResponse struct {
	ExtractionID string          `json:"extraction_id"`
	Listing      *models.Listing `json:"listing,omitempty"`
	Error        string          `json:"error,omitempty"`
	Kind         string          `json:"kind,omitempty"`
}

// Extract handles POST /api/v1/extract.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	extractionID := uuid.NewString()

	listing, err := h.extractor.Extract(r.Context(), req.URL)
	if err != nil {
		status, kind := classify(err)
		h.logger.Warn("extraction failed",
			"extraction_id", extractionID,
			"url", req.URL,
			"kind", kind,
			"error", err)
		h.respondJSON(w, status, ExtractResponse{
			ExtractionID: extractionID,
			Error:        "could not read this product page",
			Kind:         kind,
		})
		return
	}

	h.logger.Info("extraction succeeded",
		"extraction_id", extractionID,
		"url", req.URL,
		"images", len(listing.Images))

	h.respondJSON(w, http.StatusOK, ExtractResponse{
		ExtractionID: extractionID,
		Listing:      listing,
	})
}

// RateLimit rejects clients that exceed the per-window request budget.
func (h *Handlers) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := h.limiter.Allow(r.Context(), clientKey(r))
		if err != nil {
			// A broken limiter backend should not take the API down.
			h.logger.Error("rate limiter check failed", "error", err)
			allowed = true
		}
		if !allowed {
			h.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the rate-limit key for a request. RemoteAddr carries an
// ephemeral port on direct connections, which would give every TCP
// connection its own window, so only the address part is used.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func classify(err error) (int, string) {
	var extractionErr *models.ExtractionError
	if !errors.As(err, &extractionErr) {
		return http.StatusInternalServerError, "internal"
	}

	switch extractionErr.Kind {
	case models.FailureNotSupportedMarketplace:
		return http.StatusBadRequest, string(extractionErr.Kind)
	case models.FailureAllRelaysExhausted:
		return http.StatusBadGateway, string(extractionErr.Kind)
	case models.FailureBlocked:
		return http.StatusServiceUnavailable, string(extractionErr.Kind)
	case models.FailureNoTitleFound:
		return http.StatusUnprocessableEntity, string(extractionErr.Kind)
	default:
		return http.StatusInternalServerError, string(extractionErr.Kind)
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
