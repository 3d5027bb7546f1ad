package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventPageView    EventType = "page_view"
	EventProductView EventType = "product_view"
	EventAddToCart   EventType = "add_to_cart"
	EventPurchase    EventType = "purchase"
	EventSearch      EventType = "search"
)

func (t EventType) Valid() bool {
	switch t {
	case EventPageView, EventProductView, EventAddToCart, EventPurchase, EventSearch:
		return true
	}
	return false
}

// AnalyticsEvent is an append-only row of the analytics table.
type AnalyticsEvent struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	EventType EventType      `json:"event_type" db:"event_type"`
	PagePath  *string        `json:"page_path,omitempty" db:"page_path"`
	ProductID *string        `json:"product_id,omitempty" db:"product_id"`
	UserID    *uuid.UUID     `json:"user_id,omitempty" db:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Order statuses
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Order is read-only here; orders are written by checkout, which lives elsewhere.
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Currency    string          `json:"currency" db:"currency"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
