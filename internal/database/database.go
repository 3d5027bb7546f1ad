package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/config"
)

// Service owns the shared connection pool. It is created once at startup and
// injected into every repository.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens the pool and waits for the database to accept connections,
// retrying with exponential backoff for up to maxWait.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger, maxWait time.Duration) (*Service, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	backoff := retry.WithMaxDuration(maxWait, retry.NewExponential(500*time.Millisecond))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			logger.Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
	)
	return &Service{db: db, logger: logger}, nil
}

// NewFromDB wraps an existing pool.
func NewFromDB(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) DB() *sql.DB {
	return s.db
}

// Health reports pool status for the health endpoint.
func (s *Service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		s.logger.Error("Database health check failed", zap.Error(err))
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}
	return stats
}

func (s *Service) Close() error {
	s.logger.Info("Disconnected from database")
	return s.db.Close()
}
