package shipments

import (
	"encoding/base64"
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

// Handler exposes the shipment REST surface.
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
	r.Post("/", h.register)
	r.Get("/{id}", h.get)
	r.Get("/by-code/{code}", h.getByCode)
	r.Patch("/{id}/status", h.transition)
	r.Post("/{id}/collect", h.collect)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	var req RegisterRequest
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

	res, err := h.service.Register(r.Context(), actor, in)
	if err != nil {
		h.respondErr(w, r, "register shipment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shipment id")
		return
	}

	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	target, err := ParseStatus(req.TargetStatus)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sh, err := h.service.Transition(r.Context(), actor, id, target, req.Note)
	if err != nil {
		h.respondErr(w, r, "transition shipment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shipment id")
		return
	}

	var req CollectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	photo, err := base64.StdEncoding.DecodeString(req.ProofPhotoBase64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "proof_photo_base64 is not valid base64")
		return
	}

	sh, err := h.service.Collect(r.Context(), actor, id, CollectInput{
		CollectorDoc: req.CollectorDoc,
		ProofPhoto:   photo,
		SecurityCode: req.SecurityCode,
	})
	if err != nil {
		h.respondErr(w, r, "collect shipment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shipment id")
		return
	}
	sh, events, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, "get shipment", err)
		return
	}
	h.respondShipment(w, sh, events)
}

func (h *Handler) getByCode(w http.ResponseWriter, r *http.Request) {
	sh, events, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondErr(w, r, "get shipment by code", err)
		return
	}
	h.respondShipment(w, sh, events)
}

func (h *Handler) respondShipment(w http.ResponseWriter, sh *Shipment, events []lifecycle.Event) {
	if events == nil {
		events = []lifecycle.Event{}
	}
	httpx.JSON(w, http.StatusOK, ShipmentResponse{Shipment: sh, Events: events})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrShipmentNotFound):
		httpx.RespondError(w, shared.ErrNotFound)
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrSecurityCodeRequired), errors.Is(err, ErrProofRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidSecurityCode):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrAuthorization) && !errors.Is(err, shared.ErrConflict) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
