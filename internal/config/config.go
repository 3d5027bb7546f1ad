package config

import (
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Analytics AnalyticsConfig
	Currency  CurrencyConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	// BackendTimeout bounds every call to the database or the object store.
	BackendTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// StorageConfig selects and configures the product image bucket.
type StorageConfig struct {
	Backend       string // "fs" or "gcs"
	Bucket        string
	PublicBaseURL string
	LocalRoot     string
	CleanupQueue  int
}

type AnalyticsConfig struct {
	Enabled   bool
	QueueSize int
}

type CurrencyConfig struct {
	USDRate float64
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("BACKEND_TIMEOUT", "15s")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("STORAGE_BACKEND", "fs")
	viper.SetDefault("STORAGE_BUCKET", "product-images")
	viper.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/storage")
	viper.SetDefault("STORAGE_LOCAL_ROOT", "./data/storage")
	viper.SetDefault("STORAGE_CLEANUP_QUEUE", 256)
	viper.SetDefault("ANALYTICS_ENABLED", true)
	viper.SetDefault("ANALYTICS_QUEUE_SIZE", 1024)
	viper.SetDefault("CURRENCY_USD_RATE", 0.27)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			BackendTimeout: viper.GetDuration("BACKEND_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Storage: StorageConfig{
			Backend:       viper.GetString("STORAGE_BACKEND"),
			Bucket:        viper.GetString("STORAGE_BUCKET"),
			PublicBaseURL: strings.TrimRight(viper.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
			LocalRoot:     viper.GetString("STORAGE_LOCAL_ROOT"),
			CleanupQueue:  viper.GetInt("STORAGE_CLEANUP_QUEUE"),
		},
		Analytics: AnalyticsConfig{
			Enabled:   viper.GetBool("ANALYTICS_ENABLED"),
			QueueSize: viper.GetInt("ANALYTICS_QUEUE_SIZE"),
		},
		Currency: CurrencyConfig{
			USDRate: viper.GetFloat64("CURRENCY_USD_RATE"),
		},
	}
}

// DSN builds a pgx connection string from the database settings.
func (d DatabaseConfig) DSN() string {
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	q.Set("search_path", d.Schema)
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
