package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/middleware"
	"github.com/kjarir/swordrobe-edge-shop/internal/service"
)

// EventRequest is a client-side analytics event.
type EventRequest struct {
	EventType string         `json:"event_type" validate:"required,oneof=page_view product_view add_to_cart purchase search"`
	PagePath  string         `json:"page_path" validate:"max=2048"`
	ProductID string         `json:"product_id" validate:"max=64"`
	Metadata  map[string]any `json:"metadata"`
}

// AnalyticsHandler ingests storefront events and serves the admin's recent
// orders list.
type AnalyticsHandler struct {
	recorder *service.AnalyticsRecorder
	orders   service.OrderService
	logger   *zap.Logger
}

func NewAnalyticsHandler(recorder *service.AnalyticsRecorder, orders service.OrderService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{recorder: recorder, orders: orders, logger: logger}
}

// RegisterRoutes mounts ingestion behind optional auth and limit, and the
// orders list on the admin router.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router, admin chi.Router, optionalAuth, limit func(http.Handler) http.Handler) {
	r.With(optionalAuth, limit).Post("/api/analytics/events", h.Ingest)
	admin.Get("/orders/recent", h.RecentOrders)
}

// Ingest accepts an event and returns 202 before it is written.
func (h *AnalyticsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	h.recorder.Track(r.Context(), service.Event{
		Type:      domain.EventType(req.EventType),
		PagePath:  req.PagePath,
		ProductID: req.ProductID,
		Metadata:  req.Metadata,
	})
	w.WriteHeader(http.StatusAccepted)
}

// RecentOrders lists the newest orders; ?limit= defaults to 10.
func (h *AnalyticsHandler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", service.DefaultRecentOrders)
	orders, err := h.orders.Recent(r.Context(), limit)
	if err != nil {
		middleware.RespondWithAppError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func queryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return n
}
