package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
)

// Ingester is the orchestrator surface the handler drives.
type Ingester interface {
	IngestText(ctx context.Context, req ingestion.TextRequest) (ingestion.TextResponse, error)
	IngestRecords(ctx context.Context, source string, records []ingestion.Record) (ingestion.RecordsResponse, error)
}

// Lookup reads single documents back from the index.
type Lookup interface {
	Document(id string) (index.StoredDocument, bool)
}

type Handler struct {
	ingester       Ingester
	lookup         Lookup
	maxUploadBytes int64
	logger         *slog.Logger
}

// RecordsRequest is the body of POST /api/v1/documents.
type RecordsRequest struct {
	Source  string             `json:"source"`
	Records []ingestion.Record `json:"records"`
}

func New(ingester Ingester, lookup Lookup, maxUploadBytes int64) *Handler {
	return &Handler{
		ingester:       ingester,
		lookup:         lookup,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) IngestText(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingestion.TextRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Pages) == 0 {
		h.writeError(w, http.StatusBadRequest, "text or pages is required")
		return
	}
	resp, err := h.ingester.IngestText(ctx, req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("text ingestion failed",
			"source", req.Source,
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, err.Error())
		return
	}
	h.writeJSON(w, statusFor(resp.Status), resp)
}

func (h *Handler) IngestRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req RecordsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		h.writeError(w, http.StatusBadRequest, "records must not be empty")
		return
	}
	resp, err := h.ingester.IngestRecords(ctx, req.Source, req.Records)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("record ingestion failed", "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, err.Error())
		return
	}
	status := statusFor(resp.Status)
	if resp.Accepted == 0 {
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, resp)
}

// GetDocument serves GET /api/v1/documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "document id is required")
		return
	}
	doc, ok := h.lookup.Document(id)
	if !ok {
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.ErrDocumentNotFound), "document not found")
		return
	}
	h.writeJSON(w, http.StatusOK, doc.Document)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func statusFor(batchStatus string) int {
	switch batchStatus {
	case ingestion.StatusPublished:
		return http.StatusAccepted
	case ingestion.StatusEmpty:
		return http.StatusOK
	default:
		return http.StatusCreated
	}
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
