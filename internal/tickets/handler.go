package tickets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/andino-transportes/andino/internal/lifecycle"
	"github.com/andino-transportes/andino/internal/platform/httpx"
	"github.com/andino-transportes/andino/internal/shared"
)

// Handler exposes the ticket REST surface.
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
	r.Post("/", h.sell)
	r.Post("/instant", h.sellInstant)
	r.Get("/{id}", h.get)
	r.Get("/by-code/{code}", h.getByCode)
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	h.runSale(w, r, h.service.Sell)
}

func (h *Handler) sellInstant(w http.ResponseWriter, r *http.Request) {
	h.runSale(w, r, h.service.SellInstant)
}

func (h *Handler) runSale(w http.ResponseWriter, r *http.Request, sale func(ctx context.Context, actor shared.Actor, in SellInput) (*SaleResult, error)) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req SellRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	res, err := sale(r.Context(), actor, in)
	if err != nil {
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrAuthorization) {
			h.logger.Error("sell ticket", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid ticket id")
		return
	}
	tk, events, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondReadErr(w, err)
		return
	}
	h.respondTicket(w, tk, events)
}

func (h *Handler) getByCode(w http.ResponseWriter, r *http.Request) {
	tk, events, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondReadErr(w, err)
		return
	}
	h.respondTicket(w, tk, events)
}

func (h *Handler) respondTicket(w http.ResponseWriter, tk *Ticket, events []lifecycle.Event) {
	if events == nil {
		events = []lifecycle.Event{}
	}
	httpx.JSON(w, http.StatusOK, TicketResponse{Ticket: tk, Events: events})
}

func (h *Handler) respondReadErr(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTicketNotFound) {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	h.logger.Error("read ticket", slog.Any("error", err))
	httpx.RespondError(w, err)
}
