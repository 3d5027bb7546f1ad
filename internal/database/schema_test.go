package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
)

const migrationsDir = "../../migrations"

var expectedTables = map[string]string{
	"user_profiles":  "00001_create_user_profiles_table.sql",
	"refresh_tokens": "00002_create_refresh_tokens_table.sql",
	"categories":     "00003_create_categories_table.sql",
	"products":       "00004_create_products_table.sql",
	"analytics":      "00005_create_analytics_table.sql",
	"orders":         "00006_create_orders_table.sql",
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	require.NoError(t, err, "failed to read migration %s", name)
	return string(content)
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	require.NoError(t, err)

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}
		sqlFileCount++
		content := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			assert.Contains(t, content, directive, "migration %s", file.Name())
		}
		assert.Equal(t,
			strings.Count(content, "-- +goose StatementBegin"),
			strings.Count(content, "-- +goose StatementEnd"),
			"unbalanced statement blocks in %s", file.Name())
	}

	assert.Greater(t, sqlFileCount, 0, "no SQL migration files found")
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	for table, file := range expectedTables {
		content := readMigration(t, file)
		assert.Contains(t, content, "CREATE TABLE IF NOT EXISTS "+table, file)
		assert.Contains(t, content, "DROP TABLE IF EXISTS "+table, file)
	}
}

func TestProductsTableEnforcesCatalogInvariants(t *testing.T) {
	content := readMigration(t, expectedTables["products"])

	for _, column := range []string{
		"price NUMERIC",
		"original_price NUMERIC",
		"images TEXT[] NOT NULL",
		"sizes TEXT[] NOT NULL",
		"is_new BOOLEAN",
		"is_featured BOOLEAN",
	} {
		assert.Contains(t, content, column)
	}
	assert.Contains(t, content, "CHECK (cardinality(images) > 0)", "a product must always have an image")
	assert.Contains(t, content, "CHECK (price > 0)")
}

func TestCategoriesSeedMatchesProductCategories(t *testing.T) {
	content := readMigration(t, expectedTables["categories"])

	assert.Contains(t, content, "slug VARCHAR(255) NOT NULL UNIQUE")
	for _, slug := range domain.ProductCategories {
		assert.Contains(t, content, "'"+slug+"'")
	}
}

func TestAnalyticsTableAcceptsEveryEventType(t *testing.T) {
	content := readMigration(t, expectedTables["analytics"])

	for _, et := range []domain.EventType{
		domain.EventPageView,
		domain.EventProductView,
		domain.EventAddToCart,
		domain.EventPurchase,
		domain.EventSearch,
	} {
		assert.Contains(t, content, "'"+string(et)+"'")
	}
	assert.Contains(t, content, "metadata JSONB")
}

func TestOrdersTableHasStatusConstraint(t *testing.T) {
	content := readMigration(t, expectedTables["orders"])

	for _, status := range []string{
		domain.OrderPending,
		domain.OrderProcessing,
		domain.OrderShipped,
		domain.OrderDelivered,
		domain.OrderCancelled,
	} {
		assert.Contains(t, content, "'"+status+"'")
	}
}

func TestUserProfilesRoleConstraint(t *testing.T) {
	content := readMigration(t, expectedTables["user_profiles"])

	assert.Contains(t, content, "CHECK (role IN ('user', 'admin'))")
	assert.Contains(t, content, "ON user_profiles (LOWER(email))")
}
