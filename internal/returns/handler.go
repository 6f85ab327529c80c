package returns

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mostrador/mostrador/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the returns module.
type Handler struct {
	logger      *slog.Logger
	coordinator *Coordinator
	validate    *validator.Validate
}

// NewHandler constructs the returns handler.
func NewHandler(logger *slog.Logger, coordinator *Coordinator, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, coordinator: coordinator, validate: validate}
}

// MountRoutes registers return routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateReturnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.coordinator.CreateReturn(r.Context(), req)
	if err != nil {
		h.logger.Error("create return",
			slog.String("kind", string(req.Kind)),
			slog.String("original", req.OriginalDocumentID),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.coordinator.GetReturn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.coordinator.DeleteReturn(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}
