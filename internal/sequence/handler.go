package sequence

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Handler wires HTTP endpoints for series administration.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	validate     *validator.Validate
	defaultScope string
}

// NewHandler constructs the sequence handler. defaultScope is used when a
// preview request does not name one.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, defaultScope string) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, defaultScope: defaultScope}
}

// MountRoutes registers series routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{code}/preview", h.handlePreview)
	r.Put("/{code}/prefixes", h.handleSetPrefixes)
	r.Put("/{code}/counter", h.handleSetCounter)
}

type setPrefixesRequest struct {
	Scope   string `json:"scope" validate:"required,max=50"`
	PrefixA string `json:"prefix_a" validate:"required,len=3"`
	PrefixB string `json:"prefix_b" validate:"required,len=3"`
}

type setCounterRequest struct {
	Scope string `json:"scope" validate:"required,max=50"`
	Value int64  `json:"value" validate:"gte=0"`
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = h.defaultScope
	}

	number, err := h.service.Preview(r.Context(), code, scope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"series_code": code, "next_number": number})
}

func (h *Handler) handleSetPrefixes(w http.ResponseWriter, r *http.Request) {
	var req setPrefixesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.service.SetPrefixes(r.Context(), code, req.PrefixA, req.PrefixB, req.Scope); err != nil {
		h.logger.Error("set prefixes", slog.String("series", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"series_code": code, "status": "updated"})
}

func (h *Handler) handleSetCounter(w http.ResponseWriter, r *http.Request) {
	var req setCounterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.service.SetCounter(r.Context(), code, req.Value, req.Scope); err != nil {
		h.logger.Error("set counter", slog.String("series", code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"series_code": code, "status": "updated"})
}
