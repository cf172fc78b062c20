package handler

import (
	"errors"
	"net/http"

	"promo-engine/internal/model"
	"promo-engine/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PromoHandler handles promo code HTTP requests.
type PromoHandler struct {
	service service.PromoService
	logger  zerolog.Logger
}

// NewPromoHandler creates a new promo handler.
func NewPromoHandler(service service.PromoService, logger zerolog.Logger) *PromoHandler {
	return &PromoHandler{
		service: service,
		logger:  logger.With().Str("handler", "promo").Logger(),
	}
}

// Redeem handles POST /api/promo-codes/redeem requests.
func (h *PromoHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req model.RedemptionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Redeem(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Validate handles POST /api/promo-codes/validate requests.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Validate(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/promo-codes/{code} requests.
func (h *PromoHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Create handles POST /api/promo-codes requests.
func (h *PromoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePromoRequest
	if err := decode(w, r, &req); err != nil {
		if errors.Is(err, model.ErrInvalidVariant) {
			writeServiceError(w, r, err, h.logger)
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	view, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

// Health handles GET /health requests.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
