package repository

import (
	"context"
	"database/sql"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const orderEntity = "order"

// OrderRepository reads orders for the admin console.
type OrderRepository interface {
	// ListRecent returns at most limit orders, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, total_amount, currency, status, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classify(err, orderEntity, "list", nil)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o := &domain.Order{}
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Currency, &o.Status, &o.CreatedAt); err != nil {
			return nil, classify(err, orderEntity, "list", nil)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, orderEntity, "list", nil)
	}
	return orders, nil
}
