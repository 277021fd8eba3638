package loyalty

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andino-transportes/andino/internal/platform/httpx"
	"github.com/andino-transportes/andino/internal/shared"
)

// Handler exposes loyalty account reads.
type Handler struct {
	logger   *slog.Logger
	accounts AccountStore
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, accounts AccountStore) *Handler {
	return &Handler{logger: logger, accounts: accounts}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts/{docID}", h.getAccount)
}

// getAccount handles GET /loyalty/accounts/{docID}
func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	acct, err := h.accounts.Get(r.Context(), docID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.RespondError(w, shared.ErrNotFound)
			return
		}
		h.logger.Error("get loyalty account", slog.String("doc", docID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}
