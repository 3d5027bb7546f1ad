package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/currency"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/middleware"
	"github.com/kjarir/swordrobe-edge-shop/internal/service"
	"github.com/kjarir/swordrobe-edge-shop/internal/storage"
)

// jpegHeader is enough for content sniffing to report image/jpeg.
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

func passThrough(next http.Handler) http.Handler { return next }

type shop struct {
	router     chi.Router
	products   *mockProductRepository
	categories *mockCategoryRepository
	analytics  *mockAnalyticsRepository
	recorder   *service.AnalyticsRecorder
	store      *storage.FSStore
}

// newShop mounts every handler. The admin router skips auth; the gate has its
// own tests in the middleware package.
func newShop(t *testing.T, orders ...*domain.Order) *shop {
	t.Helper()
	logger := zap.NewNop()

	store := storage.NewFSStore(afero.NewMemMapFs(), storage.DefaultBucket, "http://localhost:8080/storage")
	require.NoError(t, store.EnsureBucket())
	manager := storage.NewManager(store, logger, time.Second)
	janitor := storage.NewJanitor(manager, logger, 16, time.Second)
	t.Cleanup(janitor.Close)

	s := &shop{
		products:   newMockProductRepository(),
		categories: newMockCategoryRepository(),
		analytics:  &mockAnalyticsRepository{},
		store:      store,
	}
	s.recorder = service.NewAnalyticsRecorder(s.analytics, logger, service.AnalyticsOptions{
		Enabled: true,
		UserID:  middleware.GetUserID,
	})
	t.Cleanup(s.recorder.Close)

	catalog := service.NewCatalogService(s.products, s.categories, logger)
	productAdmin := service.NewProductAdminService(s.products, manager, janitor, logger)
	categoryAdmin := service.NewCategoryAdminService(s.categories, s.products, logger)

	r := chi.NewRouter()
	admin := chi.NewRouter()
	NewProductHandler(catalog, productAdmin, s.recorder, currency.NewFormatter(0.27), logger).RegisterRoutes(r, admin)
	NewCategoryHandler(catalog, categoryAdmin, logger).RegisterRoutes(r, admin)
	NewAnalyticsHandler(s.recorder, service.NewOrderService(&mockOrderRepository{orders: orders}), logger).
		RegisterRoutes(r, admin, passThrough, passThrough)
	r.Mount("/api/admin", admin)

	s.router = r
	return s
}

func (s *shop) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func productMultipart(t *testing.T, method, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		part, err := mw.CreateFormFile(filesField, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func dressFields() map[string]string {
	return map[string]string{
		"name":        "Lavender Lily Dress",
		"price":       "1299",
		"category":    "dresses",
		"sizes":       "S, M, L",
		"description": "Flowing midi dress",
		"material":    "Linen",
		"in_stock":    "on",
		"is_featured": "true",
	}
}

func TestProductHandler_CreateAndBrowse(t *testing.T) {
	s := newShop(t)

	w := s.do(productMultipart(t, http.MethodPost, "/api/admin/products", dressFields(),
		map[string][]byte{"front.jpg": jpegHeader}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.Len(t, created.Product.Images, 1)
	assert.Empty(t, created.UploadWarnings)
	assert.True(t, created.Product.InStock)
	assert.True(t, created.Product.IsFeatured)
	assert.Equal(t, []string{"S", "M", "L"}, created.Product.Sizes)

	path, err := storage.ExtractPath(storage.DefaultBucket, created.Product.Images[0])
	require.NoError(t, err)
	assert.True(t, s.store.Exists(path))

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/products/"+created.Product.ID.String()+"?currency=usd", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&view))
	assert.Equal(t, "$351", view["display_price"])
	assert.Equal(t, "USD", view["currency"])
	assert.Equal(t, false, view["on_sale"])

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/products/featured", nil))
	var featured []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&featured))
	require.Len(t, featured, 1)
	assert.Equal(t, "AED 1,299", featured[0]["display_price"])

	s.recorder.Close()
	events := s.analytics.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventProductView, events[0].EventType)
}

func TestProductHandler_ValidationEchoesForm(t *testing.T) {
	s := newShop(t)
	fields := dressFields()
	fields["price"] = "free"

	w := s.do(productMultipart(t, http.MethodPost, "/api/admin/products", fields,
		map[string][]byte{"front.jpg": jpegHeader}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Form service.ProductForm `json:"form"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "invalid_price", resp.Error.Code)
	assert.Equal(t, "Lavender Lily Dress", resp.Error.Details.Form.Name)
	assert.Equal(t, "free", resp.Error.Details.Form.Price)
	assert.Empty(t, s.products.products)
}

func TestProductHandler_RejectsNonImage(t *testing.T) {
	s := newShop(t)

	w := s.do(productMultipart(t, http.MethodPost, "/api/admin/products", dressFields(),
		map[string][]byte{"notes.txt": []byte("plain text, not an image")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.products.products)
}

func TestProductHandler_SearchRecordsEvent(t *testing.T) {
	s := newShop(t)
	for _, name := range []string{"Linen Dress", "Silk Top", "Wrap Dress"} {
		require.NoError(t, s.products.Create(context.Background(), &domain.Product{
			Name:     name,
			Price:    decimal.NewFromInt(100),
			Category: domain.CategoryDresses,
			Images:   []string{"a.jpg"},
		}))
	}

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/products?q=dress", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 2)

	s.recorder.Close()
	events := s.analytics.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSearch, events[0].EventType)
	assert.EqualValues(t, 2, events[0].Metadata["result_count"])
}

func TestProductHandler_UnknownProduct(t *testing.T) {
	s := newShop(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/products/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/admin/products/00000000-0000-0000-0000-000000000001", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryHandler_DeleteGuardedByProducts(t *testing.T) {
	s := newShop(t)

	w := s.do(postJSON("/api/admin/categories", service.CategoryForm{Name: "Dresses"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var category domain.Category
	require.NoError(t, json.NewDecoder(w.Body).Decode(&category))
	assert.Equal(t, "dresses", category.Slug)

	require.NoError(t, s.products.Create(context.Background(), &domain.Product{
		Name:     "Linen Dress",
		Price:    decimal.NewFromInt(100),
		Category: domain.CategoryDresses,
		Images:   []string{"a.jpg"},
	}))

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/admin/categories/"+category.ID.String(), nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "category_in_use")

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	var listed []domain.Category
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Len(t, listed, 1)
}

func TestCategoryHandler_CreateValidation(t *testing.T) {
	s := newShop(t)

	w := s.do(postJSON("/api/admin/categories", service.CategoryForm{Description: "no name"}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_errors")

	w = s.do(postJSON("/api/admin/categories", service.CategoryForm{Name: "Tops", Slug: "Summer Tops!"}))
	require.Equal(t, http.StatusCreated, w.Code)
	var category domain.Category
	require.NoError(t, json.NewDecoder(w.Body).Decode(&category))
	assert.Equal(t, "summer-tops", category.Slug)

	w = s.do(postJSON("/api/admin/categories", service.CategoryForm{Name: "Other Tops", Slug: "summer-tops"}))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAnalyticsHandler_Ingest(t *testing.T) {
	s := newShop(t)

	w := s.do(postJSON("/api/analytics/events", EventRequest{EventType: "page_view", PagePath: "/shop"}))
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = s.do(postJSON("/api/analytics/events", EventRequest{EventType: "checkout_started"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.recorder.Close()
	events := s.analytics.recorded()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].PagePath)
	assert.Equal(t, "/shop", *events[0].PagePath)
	assert.Nil(t, events[0].UserID)
}

func TestAnalyticsHandler_RecentOrders(t *testing.T) {
	var orders []*domain.Order
	for i := 0; i < 12; i++ {
		orders = append(orders, &domain.Order{Currency: "AED", Status: domain.OrderPending, TotalAmount: decimal.NewFromInt(int64(i))})
	}
	s := newShop(t, orders...)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/admin/orders/recent", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got []domain.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, service.DefaultRecentOrders)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/admin/orders/recent?limit=3", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 3)
}
