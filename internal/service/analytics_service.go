package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
)

const (
	defaultAnalyticsQueueSize = 256
	analyticsInsertTimeout    = 5 * time.Second
)

// Event is a storefront interaction to record.
type Event struct {
	Type      domain.EventType
	PagePath  string
	ProductID string
	Metadata  map[string]any
}

// UserIDFunc resolves the signed-in user from a request context.
type UserIDFunc func(ctx context.Context) (string, bool)

// AnalyticsRecorder records analytics events best-effort. Track never blocks
// and never fails; events are inserted by a single background worker and
// failures are only logged at debug level.
type AnalyticsRecorder struct {
	repo    repository.AnalyticsRepository
	logger  *zap.Logger
	userID  UserIDFunc
	enabled bool

	events chan *domain.AnalyticsEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// AnalyticsOptions configures an AnalyticsRecorder.
type AnalyticsOptions struct {
	Enabled   bool
	QueueSize int
	UserID    UserIDFunc
}

func NewAnalyticsRecorder(repo repository.AnalyticsRepository, logger *zap.Logger, opts AnalyticsOptions) *AnalyticsRecorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultAnalyticsQueueSize
	}
	if opts.UserID == nil {
		opts.UserID = func(context.Context) (string, bool) { return "", false }
	}
	r := &AnalyticsRecorder{
		repo:    repo,
		logger:  logger,
		userID:  opts.UserID,
		enabled: opts.Enabled && repo != nil,
		events:  make(chan *domain.AnalyticsEvent, opts.QueueSize),
	}
	if r.enabled {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

func (r *AnalyticsRecorder) run() {
	defer r.wg.Done()
	for event := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsInsertTimeout)
		if err := r.repo.Insert(ctx, event); err != nil {
			r.logger.Debug("analytics event not recorded",
				zap.String("event_type", string(event.EventType)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Track queues e for insertion. Invalid event types, a disabled recorder
// and a full queue all drop the event.
func (r *AnalyticsRecorder) Track(ctx context.Context, e Event) {
	if !e.Type.Valid() {
		r.logger.Debug("analytics event dropped: unknown type", zap.String("event_type", string(e.Type)))
		return
	}
	if !r.enabled {
		r.logger.Debug("analytics disabled, event discarded", zap.String("event_type", string(e.Type)))
		return
	}

	event := &domain.AnalyticsEvent{
		EventType: e.Type,
		Metadata:  e.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if e.PagePath != "" {
		path := e.PagePath
		event.PagePath = &path
	}
	if e.ProductID != "" {
		productID := e.ProductID
		event.ProductID = &productID
	}
	if raw, ok := r.userID(ctx); ok {
		if id, err := uuid.Parse(raw); err == nil {
			event.UserID = &id
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- event:
	default:
		r.logger.Debug("analytics event dropped: queue full", zap.String("event_type", string(e.Type)))
	}
}

func (r *AnalyticsRecorder) TrackPageView(ctx context.Context, pagePath string) {
	r.Track(ctx, Event{Type: domain.EventPageView, PagePath: pagePath})
}

func (r *AnalyticsRecorder) TrackProductView(ctx context.Context, productID, productName string) {
	r.Track(ctx, Event{
		Type:      domain.EventProductView,
		PagePath:  "/product/" + productID,
		ProductID: productID,
		Metadata:  map[string]any{"product_name": productName},
	})
}

func (r *AnalyticsRecorder) TrackAddToCart(ctx context.Context, productID, productName string, quantity int, size string) {
	r.Track(ctx, Event{
		Type:      domain.EventAddToCart,
		ProductID: productID,
		Metadata: map[string]any{
			"product_name": productName,
			"quantity":     quantity,
			"size":         size,
		},
	})
}

func (r *AnalyticsRecorder) TrackPurchase(ctx context.Context, orderID string, total float64, itemCount int) {
	r.Track(ctx, Event{
		Type:     domain.EventPurchase,
		PagePath: "/checkout",
		Metadata: map[string]any{
			"order_id":   orderID,
			"total":      total,
			"item_count": itemCount,
		},
	})
}

func (r *AnalyticsRecorder) TrackSearch(ctx context.Context, query string, resultCount int) {
	r.Track(ctx, Event{
		Type: domain.EventSearch,
		Metadata: map[string]any{
			"query":        query,
			"result_count": resultCount,
		},
	})
}

// Close stops accepting events and waits for queued ones to be written.
func (r *AnalyticsRecorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
