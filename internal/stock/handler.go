package stock

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Handler wires HTTP endpoints for manual stock adjustments.
type Handler struct {
	logger   *slog.Logger
	ledger   *Ledger
	validate *validator.Validate
}

// NewHandler constructs the stock handler.
func NewHandler(logger *slog.Logger, ledger *Ledger, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, ledger: ledger, validate: validate}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/adjustments", h.handleAdjust)
	r.Get("/{productCode}", h.handleGetStock)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var input AdjustmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.ledger.Adjust(r.Context(), input); err != nil {
		h.logger.Error("stock adjustment",
			slog.String("product", input.ProductCode),
			slog.Float64("delta", input.Delta),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_code": input.ProductCode, "status": "applied"})
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "productCode")
	qty, err := h.ledger.GetStock(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_code": code, "stock": qty})
}
