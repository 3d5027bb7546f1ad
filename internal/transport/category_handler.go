package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/middleware"
	"github.com/kjarir/swordrobe-edge-shop/internal/service"
)

// CategoryHandler serves the public category list and admin category CRUD.
type CategoryHandler struct {
	catalog service.CatalogService
	admin   service.CategoryAdminService
	logger  *zap.Logger
}

func NewCategoryHandler(catalog service.CatalogService, admin service.CategoryAdminService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{catalog: catalog, admin: admin, logger: logger}
}

func (h *CategoryHandler) RegisterRoutes(r chi.Router, admin chi.Router) {
	r.Get("/api/categories", h.ListPublic)

	admin.Route("/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// ListPublic never fails; an unreachable backend yields an empty list.
func (h *CategoryHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.catalog.ListCategories(r.Context()))
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.admin.List(r.Context())
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form service.CategoryForm
	if err := middleware.DecodeAndValidate(r, &form); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.admin.Create(r.Context(), form)
	if err != nil {
		middleware.RespondWithAppErrorDetails(w, h.logger, err, map[string]interface{}{"form": form})
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var form service.CategoryForm
	if err := middleware.DecodeAndValidate(r, &form); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	category, err := h.admin.Update(r.Context(), id, form)
	if err != nil {
		middleware.RespondWithAppErrorDetails(w, h.logger, err, map[string]interface{}{"form": form})
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.admin.Delete(r.Context(), id); err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
