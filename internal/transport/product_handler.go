package transport

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
	"github.com/kjarir/swordrobe-edge-shop/internal/currency"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/middleware"
	"github.com/kjarir/swordrobe-edge-shop/internal/service"
	"github.com/kjarir/swordrobe-edge-shop/internal/storage"
)

const (
	// multipart field holding staged image files
	filesField = "files"
	// maxMultipartBody bounds a whole admin submission.
	maxMultipartBody = storage.MaxImagesPerProduct*storage.MaxFileSize + 1<<20
)

// ProductView is a product as shown on the storefront, with prices rendered
// in the requested display currency.
type ProductView struct {
	*domain.Product
	OnSale               bool   `json:"on_sale"`
	DisplayPrice         string `json:"display_price"`
	DisplayOriginalPrice string `json:"display_original_price,omitempty"`
	Currency             string `json:"currency"`
}

// UploadWarning reports a staged file that failed to upload while the
// product was still saved.
type UploadWarning struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitResponse is returned by admin product create and update.
type SubmitResponse struct {
	Product        *domain.Product `json:"product"`
	UploadWarnings []UploadWarning `json:"upload_warnings,omitempty"`
}

// ProductHandler serves the storefront catalog and the admin product
// endpoints.
type ProductHandler struct {
	catalog   service.CatalogService
	admin     service.ProductAdminService
	recorder  *service.AnalyticsRecorder
	formatter *currency.Formatter
	logger    *zap.Logger
}

func NewProductHandler(
	catalog service.CatalogService,
	admin service.ProductAdminService,
	recorder *service.AnalyticsRecorder,
	formatter *currency.Formatter,
	logger *zap.Logger,
) *ProductHandler {
	return &ProductHandler{
		catalog:   catalog,
		admin:     admin,
		recorder:  recorder,
		formatter: formatter,
		logger:    logger,
	}
}

// RegisterRoutes registers the public catalog routes on r and the admin
// routes on admin, which must already be behind auth and the admin gate.
func (h *ProductHandler) RegisterRoutes(r chi.Router, admin chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/featured", h.ListFeatured)
		r.Get("/{id}", h.Get)
	})

	admin.Route("/products", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *ProductHandler) view(p *domain.Product, code string) ProductView {
	unit := h.formatter.Unit(code)
	v := ProductView{
		Product:      p,
		OnSale:       p.OnSale(),
		DisplayPrice: h.formatter.Format(p.Price, unit.String()),
		Currency:     unit.String(),
	}
	if p.OriginalPrice != nil {
		v.DisplayOriginalPrice = h.formatter.Format(*p.OriginalPrice, unit.String())
	}
	return v
}

func (h *ProductHandler) views(products []*domain.Product, code string) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, h.view(p, code))
	}
	return out
}

// List returns products newest first, optionally filtered by ?category= and
// a case-insensitive name search ?q=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	products := h.catalog.ListByCategory(r.Context(), query.Get("category"))

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		needle := strings.ToLower(q)
		matched := make([]*domain.Product, 0, len(products))
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				matched = append(matched, p)
			}
		}
		products = matched
		h.recorder.TrackSearch(r.Context(), q, len(products))
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.views(products, query.Get("currency")))
}

func (h *ProductHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.ListFeatured(r.Context())
	middleware.RespondWithJSON(w, http.StatusOK, h.views(products, r.URL.Query().Get("currency")))
}

// Get returns one product and records a product view.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	product, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}

	h.recorder.TrackProductView(r.Context(), product.ID.String(), product.Name)
	middleware.RespondWithJSON(w, http.StatusOK, h.view(product, r.URL.Query().Get("currency")))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, nil)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	h.submit(w, r, &id)
}

func (h *ProductHandler) submit(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := parseProductForm(r.MultipartForm)
	form.ID = id
	form.SubmissionKey = r.Header.Get(middleware.SubmissionKeyHeader)

	staged, err := readFiles(r.MultipartForm.File[filesField])
	if err != nil {
		h.logger.Warn("Failed to read staged files", zap.Error(err))
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "failed to read uploaded files",
			map[string]interface{}{"form": form})
		return
	}

	result, err := h.admin.Submit(r.Context(), form, staged)
	if err != nil {
		middleware.RespondWithAppErrorDetails(w, h.logger, err, map[string]interface{}{"form": form})
		return
	}

	resp := SubmitResponse{Product: result.Product}
	for _, fe := range result.UploadErrors {
		resp.UploadWarnings = append(resp.UploadWarnings, UploadWarning{
			File:    fe.File,
			Code:    apperror.CodeOf(fe.Err),
			Message: apperror.MessageOf(fe.Err),
		})
	}

	status := http.StatusOK
	if id == nil {
		status = http.StatusCreated
	}
	middleware.RespondWithJSON(w, status, resp)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.admin.Delete(r.Context(), id); err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseProductForm(mf *multipart.Form) service.ProductForm {
	value := func(key string) string {
		if v := mf.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	flag := func(key string) bool {
		b, _ := strconv.ParseBool(value(key))
		return b || value(key) == "on"
	}

	images := []string{}
	for _, u := range mf.Value["images"] {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}

	return service.ProductForm{
		Name:          value("name"),
		Price:         value("price"),
		OriginalPrice: value("original_price"),
		Category:      value("category"),
		Sizes:         value("sizes"),
		Description:   value("description"),
		Material:      value("material"),
		InStock:       flag("in_stock"),
		IsNew:         flag("is_new"),
		IsFeatured:    flag("is_featured"),
		Images:        images,
	}
}

func readFiles(headers []*multipart.FileHeader) ([]storage.FileUpload, error) {
	files := make([]storage.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, storage.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
