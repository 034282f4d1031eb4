package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kpapadakis/ali-price-checker/internal/aliexpress"
	"github.com/kpapadakis/ali-price-checker/internal/database"
	"github.com/kpapadakis/ali-price-checker/internal/jobs"
	"github.com/kpapadakis/ali-price-checker/internal/models"
)

// Handler serves the job API.
type Handler struct {
	manager *jobs.Manager
	logger  *slog.Logger
}

func NewHandler(manager *jobs.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger.With("component", "api"),
	}
}

type createJobRequest struct {
	Country  string             `json:"country"`
	Currency string             `json:"currency"`
	Items    []models.CheckItem `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateJob handles POST /api/jobs.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.manager.Create(r.Context(), req.Country, req.Currency, req.Items)
	if err != nil {
		if errors.Is(err, aliexpress.ErrCountryNotFound) || errors.Is(err, aliexpress.ErrCurrencyNotFound) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.Items) == 0 {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusCreated, job)
}

// GetJob handles GET /api/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.manager.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to load job", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

// GetJobQuotes handles GET /api/jobs/{id}/quotes.
func (h *Handler) GetJobQuotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.manager.Get(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.Error("failed to load job", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	quotes, err := h.manager.Quotes(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load quotes", "id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load quotes")
		return
	}
	if quotes == nil {
		quotes = []models.PriceQuote{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"job_id": id,
		"quotes": quotes,
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, errorResponse{Error: msg})
}
