package invoicing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/andino-transportes/andino/internal/platform/httpx"
	"github.com/andino-transportes/andino/internal/shared"
)

// Handler exposes invoice reads and voiding.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{id}", h.get)
	r.Post("/{id}/void", h.void)
}

// VoidRequest is the body of POST /invoices/{id}/void.
type VoidRequest struct {
	Reason string `json:"reason" validate:"required,min=5,max=500"`
}

// VoidResponse carries the voided invoice and any gateway warning.
type VoidResponse struct {
	Invoice *Invoice `json:"invoice"`
	Warning string   `json:"warning,omitempty"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}

	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrInvoiceNotFound) {
			httpx.RespondError(w, shared.ErrNotFound)
			return
		}
		h.logger.Error("get invoice", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}

	var req VoidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	inv, warning, err := h.service.Void(r.Context(), id, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvoiceNotFound):
			httpx.RespondError(w, shared.ErrNotFound)
		case errors.Is(err, ErrAlreadyVoided):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("void invoice", slog.Int64("id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, VoidResponse{Invoice: inv, Warning: warning})
}
