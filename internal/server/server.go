package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/config"
	"github.com/kjarir/swordrobe-edge-shop/internal/currency"
	"github.com/kjarir/swordrobe-edge-shop/internal/database"
	applog "github.com/kjarir/swordrobe-edge-shop/internal/logger"
	custommiddleware "github.com/kjarir/swordrobe-edge-shop/internal/middleware"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
	"github.com/kjarir/swordrobe-edge-shop/internal/service"
	"github.com/kjarir/swordrobe-edge-shop/internal/storage"
	"github.com/kjarir/swordrobe-edge-shop/internal/transport"
)

const (
	storageBackendGCS = "gcs"

	loginRequestsPerMinute     = 10
	analyticsRequestsPerMinute = 120
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	db       *database.Service
	redis    *redis.Client
	gcs      *storage.GCSStore
	janitor  *storage.Janitor
	recorder *service.AnalyticsRecorder
}

// NewServer wires repositories, services and handlers onto one router.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *database.Service) (*Server, error) {
	s := &Server{config: cfg, logger: logger, db: db}

	store, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}

	s.redis = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.IsDevelopment()))

	// Initialize repositories
	sqlDB := db.DB()
	userRepo := repository.NewUserRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	productRepo := repository.NewProductRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	analyticsRepo := repository.NewAnalyticsRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)

	// Storage and background workers
	manager := storage.NewManager(store, applog.Component(logger, "storage"), cfg.Server.BackendTimeout)
	if !manager.CheckBucket(ctx) {
		logger.Warn("Product image bucket is missing; uploads will fail until it is created",
			zap.String("bucket", manager.Bucket()))
	}
	s.janitor = storage.NewJanitor(manager, applog.Component(logger, "storage.janitor"), cfg.Storage.CleanupQueue, cfg.Server.BackendTimeout)
	s.recorder = service.NewAnalyticsRecorder(analyticsRepo, applog.Component(logger, "analytics"), service.AnalyticsOptions{
		Enabled:   cfg.Analytics.Enabled,
		QueueSize: cfg.Analytics.QueueSize,
		UserID:    custommiddleware.GetUserID,
	})

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret, service.TokenTTL{
		Access:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		Refresh: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	})
	catalogService := service.NewCatalogService(productRepo, categoryRepo, logger)
	productAdmin := service.NewProductAdminService(productRepo, manager, s.janitor, logger)
	categoryAdmin := service.NewCategoryAdminService(categoryRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(catalogService, productAdmin, s.recorder,
		currency.NewFormatter(cfg.Currency.USDRate), logger)
	categoryHandler := transport.NewCategoryHandler(catalogService, categoryAdmin, logger)
	analyticsHandler := transport.NewAnalyticsHandler(s.recorder, orderService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)
	optionalAuth := custommiddleware.OptionalAuth(userService, logger)
	loginLimit := custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.RateLimitConfig{
		RequestsPerWindow: loginRequestsPerMinute,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:login",
	}, logger)
	analyticsLimit := custommiddleware.RateLimitMiddleware(s.redis, custommiddleware.RateLimitConfig{
		RequestsPerWindow: analyticsRequestsPerMinute,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:analytics",
	}, logger)

	router.Get("/health", s.health(manager))
	if fs, ok := store.(*storage.FSStore); ok {
		s.mountBucket(router, fs)
	}

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.Server.BackendTimeout + 5*time.Second))

		admin := chi.NewRouter()
		admin.Use(authMiddleware)
		admin.Use(custommiddleware.RequireAdmin(logger))

		userHandler.RegisterRoutes(r, authMiddleware, loginLimit)
		productHandler.RegisterRoutes(r, admin)
		categoryHandler.RegisterRoutes(r, admin)
		analyticsHandler.RegisterRoutes(r, admin, optionalAuth, analyticsLimit)

		r.Mount("/api/admin", admin)
	})

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s, nil
}

func (s *Server) openStore(ctx context.Context) (storage.ObjectStore, error) {
	cfg := s.config.Storage
	if strings.EqualFold(cfg.Backend, storageBackendGCS) {
		gcs, err := storage.NewGCSStore(ctx, cfg.Bucket, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open gcs bucket: %w", err)
		}
		s.gcs = gcs
		return gcs, nil
	}

	fs := storage.NewLocalStore(cfg.LocalRoot, cfg.Bucket, cfg.PublicBaseURL)
	if err := fs.EnsureBucket(); err != nil {
		return nil, fmt.Errorf("failed to create local bucket: %w", err)
	}
	return fs, nil
}

// mountBucket serves a local bucket under the path of the public base URL so
// stored image URLs resolve against this API.
func (s *Server) mountBucket(r chi.Router, fs *storage.FSStore) {
	prefix := "/storage"
	if u, err := url.Parse(s.config.Storage.PublicBaseURL); err == nil && u.Path != "" {
		prefix = strings.TrimRight(u.Path, "/")
	}
	prefix += "/" + fs.Bucket()

	r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(fs.FileSystem())))
	s.logger.Info("Serving local bucket", zap.String("path", prefix))
}

func (s *Server) health(manager *storage.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := s.db.Health(r.Context())
		bucketOK := manager.CheckBucket(r.Context())

		status := http.StatusOK
		if db["status"] != "up" || !bucketOK {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"database": db,
			"storage": map[string]interface{}{
				"bucket": manager.Bucket(),
				"ok":     bucketOK,
			},
		})
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.recorder.Close()
	s.janitor.Close()

	if s.gcs != nil {
		if err := s.gcs.Close(); err != nil {
			s.logger.Error("Failed to close storage client", zap.Error(err))
		}
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
