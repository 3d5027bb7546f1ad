package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
)

// Mock repositories for testing

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	key := strings.ToLower(user.Email)
	if _, exists := m.users[key]; exists {
		return repository.ErrUserAlreadyExists
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[key] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[strings.ToLower(email)]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, email, role string) (*domain.User, error) {
	user, err := m.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	token.ID = uuid.New()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

// mockProductRepository is an in-memory products table that records writes.
type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	seq      int
	creates  int
	updates  int
	deletes  int
	err      error
	writeErr error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.writeErr != nil {
		return m.writeErr
	}
	m.seq++
	product.ID = uuid.New()
	product.CreatedAt = time.Unix(int64(m.seq), 0)
	product.UpdatedAt = product.CreatedAt
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	stored := *product
	m.products[product.ID] = &stored
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Product{}
	for _, p := range m.products {
		if filter.Category != "" && filter.Category != domain.CategoryAll && p.Category != filter.Category {
			continue
		}
		if filter.FeaturedOnly && !p.IsFeatured {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockProductRepository) ExistsByCategory(ctx context.Context, values ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, p := range m.products {
		for _, v := range values {
			if v != "" && strings.EqualFold(p.Category, v) {
				return true, nil
			}
		}
	}
	return false, nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	deletes    int
	err        error
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category)}
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.Slug == category.Slug {
			return errUniqueSlug
		}
	}
	category.ID = uuid.New()
	category.CreatedAt = time.Now()
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.deletes++
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Category{}
	for _, c := range m.categories {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockAnalyticsRepository struct {
	mu     sync.Mutex
	events []*domain.AnalyticsEvent
	err    error
}

func (m *mockAnalyticsRepository) Insert(ctx context.Context, event *domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	event.ID = uuid.New()
	m.events = append(m.events, event)
	return nil
}

func (m *mockAnalyticsRepository) recorded() []*domain.AnalyticsEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AnalyticsEvent(nil), m.events...)
}

type mockOrderRepository struct {
	orders []*domain.Order
}

func (m *mockOrderRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Order, error) {
	if limit > len(m.orders) {
		limit = len(m.orders)
	}
	return m.orders[:limit], nil
}
