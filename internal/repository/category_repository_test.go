package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

func TestCategoryRepository_CRUD(t *testing.T) {
	requireDB(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	desc := "Soft knits"
	knit := &domain.Category{Name: "Knitwear", Slug: "knitwear", Description: &desc}
	basics := &domain.Category{Name: "Basics", Slug: "basics"}
	require.NoError(t, repo.Create(ctx, knit))
	require.NoError(t, repo.Create(ctx, basics))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Basics", list[0].Name, "alphabetical")
	assert.Nil(t, list[0].Description)

	knit.Name = "Knits"
	knit.Slug = "knits"
	require.NoError(t, repo.Update(ctx, knit))
	got, err := repo.FindByID(ctx, knit.ID)
	require.NoError(t, err)
	assert.Equal(t, "knits", got.Slug)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Soft knits", *got.Description)

	require.NoError(t, repo.Delete(ctx, knit.ID))
	_, err = repo.FindByID(ctx, knit.ID)
	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), ErrCategoryNotFound)
}

func TestCategoryRepository_DuplicateSlug(t *testing.T) {
	requireDB(t)
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Category{Name: "Tops", Slug: "tops"}))
	err := repo.Create(ctx, &domain.Category{Name: "Tops 2", Slug: "tops"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, apperror.CodeUniqueViolation, apperror.CodeOf(err))
	assert.Equal(t, "A category with this slug already exists.", apperror.MessageOf(err))
}

func TestAnalyticsRepository_Insert(t *testing.T) {
	requireDB(t)
	repo := NewAnalyticsRepository(testDB)
	ctx := context.Background()

	path := "/product/123"
	productID := "123"
	event := &domain.AnalyticsEvent{
		EventType: domain.EventProductView,
		PagePath:  &path,
		ProductID: &productID,
		Metadata:  map[string]any{"source": "grid"},
	}
	require.NoError(t, repo.Insert(ctx, event))
	assert.NotEqual(t, uuid.Nil, event.ID)

	var source string
	require.NoError(t, testDB.QueryRow(`SELECT metadata->>'source' FROM analytics WHERE id = $1`, event.ID).Scan(&source))
	assert.Equal(t, "grid", source)

	bare := &domain.AnalyticsEvent{EventType: domain.EventPageView}
	require.NoError(t, repo.Insert(ctx, bare))

	err := repo.Insert(ctx, &domain.AnalyticsEvent{EventType: "hover"})
	assert.Equal(t, apperror.CodeCheckViolation, apperror.CodeOf(err))
}

func TestOrderRepository_ListRecent(t *testing.T) {
	requireDB(t)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	for i, amount := range []string{"100.00", "250.50", "75.25"} {
		_, err := testDB.Exec(
			`INSERT INTO orders (total_amount, status, created_at) VALUES ($1, 'pending', NOW() - make_interval(mins => $2))`,
			amount, 10-i)
		require.NoError(t, err)
	}

	orders, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, orders[0].TotalAmount.Equal(decimal.RequireFromString("75.25")))
	assert.Equal(t, "AED", orders[0].Currency)
	assert.Nil(t, orders[0].UserID)
}
