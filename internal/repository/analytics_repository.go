package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const analyticsEntity = "analytics event"

// AnalyticsRepository appends events to the analytics table.
type AnalyticsRepository interface {
	Insert(ctx context.Context, event *domain.AnalyticsEvent) error
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Insert(ctx context.Context, event *domain.AnalyticsEvent) error {
	var metadata []byte
	if len(event.Metadata) > 0 {
		b, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode analytics metadata: %w", err)
		}
		metadata = b
	}

	query := `
		INSERT INTO analytics (event_type, page_path, product_id, user_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		string(event.EventType),
		event.PagePath,
		event.ProductID,
		event.UserID,
		metadata,
	).Scan(&event.ID, &event.CreatedAt)
	return classify(err, analyticsEntity, "record", nil)
}
