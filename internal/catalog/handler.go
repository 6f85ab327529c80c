package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/mostrador/internal/money"
	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Put("/", h.handleUpsert)
	r.Get("/{code}", h.handleGet)
	r.Get("/{code}/pricing", h.handleGetPricing)
}

type productView struct {
	Product
	PriceDisplay string `json:"price_display"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	products, err := h.service.ListProducts(r.Context(), limit, offset)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{Product: p, PriceDisplay: money.FormatAmount(p.Price)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productView{Product: *product, PriceDisplay: money.FormatAmount(product.Price)})
}

func (h *Handler) handleGetPricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := h.service.GetPricing(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pricing)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if err := h.service.UpsertProduct(r.Context(), req); err != nil {
		h.logger.Error("upsert product", slog.String("code", req.Code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": req.Code, "status": "upserted"})
}
