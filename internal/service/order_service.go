package service

import (
	"context"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
)

const (
	DefaultRecentOrders = 10
	MaxRecentOrders     = 50
)

// OrderService backs the admin dashboard's recent orders list.
type OrderService interface {
	Recent(ctx context.Context, limit int) ([]*domain.Order, error)
}

type orderService struct {
	orders repository.OrderRepository
}

func NewOrderService(orders repository.OrderRepository) OrderService {
	return &orderService{orders: orders}
}

// Recent returns the newest orders. limit is clamped to [1, MaxRecentOrders];
// zero or less means DefaultRecentOrders.
func (s *orderService) Recent(ctx context.Context, limit int) ([]*domain.Order, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentOrders
	case limit > MaxRecentOrders:
		limit = MaxRecentOrders
	}
	return s.orders.ListRecent(ctx, limit)
}
