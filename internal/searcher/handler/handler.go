package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/middleware"
)

// Engine is the query side the handler serves.
type Engine interface {
	Search(ctx context.Context, query string, limit int) searcher.Outcome
	Limit(limit int) int
	Generation() uint64
}

type Handler struct {
	engine         Engine
	cache          *cache.QueryCache
	metrics        *metrics.Metrics
	minQueryLength int
	logger         *slog.Logger
}

// SearchResponse is the JSON body of a search. An error outcome is still
// a 200: the query was served, it just could not be answered.
type SearchResponse struct {
	Query      string          `json:"query"`
	Status     searcher.Status `json:"status"`
	Tier       searcher.Tier   `json:"tier"`
	Generation uint64          `json:"generation"`
	Count      int             `json:"count"`
	Results    []searcher.Hit  `json:"results"`
	Cached     bool            `json:"cached"`
	LatencyMs  int64           `json:"latency_ms"`
	Error      string          `json:"error,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

// New wires a search handler. queryCache and m may be nil.
func New(engine Engine, queryCache *cache.QueryCache, m *metrics.Metrics, minQueryLength int) *Handler {
	return &Handler{
		engine:         engine,
		cache:          queryCache,
		metrics:        m,
		minQueryLength: minQueryLength,
		logger:         slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if utf8.RuneCountInString(query) < h.minQueryLength {
		h.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("query must be at least %d characters", h.minQueryLength))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	limit = h.engine.Limit(limit)

	var out searcher.Outcome
	cacheHit := false
	if h.cache != nil {
		out, cacheHit = h.cache.GetOrCompute(ctx, query, limit, h.engine.Generation(), func() searcher.Outcome {
			return h.engine.Search(ctx, query, limit)
		})
	} else {
		out = h.engine.Search(ctx, query, limit)
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		status := "miss"
		switch {
		case h.cache == nil:
			status = "disabled"
		case cacheHit:
			status = "hit"
		}
		h.metrics.SearchLatency.WithLabelValues(status).Observe(elapsed.Seconds())
	}
	if out.Status == searcher.StatusError {
		log.Error("search failed", "query", query, "error", out.Err)
	}

	resp := SearchResponse{
		Query:      query,
		Status:     out.Status,
		Tier:       out.Tier,
		Generation: out.Generation,
		Count:      len(out.Hits),
		Results:    out.Hits,
		Cached:     cacheHit,
		LatencyMs:  elapsed.Milliseconds(),
		RequestID:  middleware.GetRequestID(ctx),
	}
	if resp.Results == nil {
		resp.Results = []searcher.Hit{}
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerStats(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
