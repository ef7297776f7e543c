package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type DatabaseConfig struct {
	Backend     string `toml:"backend"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type StorageConfig struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

func (s StorageConfig) Enabled() bool { return s.Bucket != "" }

type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

type Config struct {
	HTTPPort      string `toml:"http_port"`
	LogLevel      string `toml:"log_level"`
	JWTSecret     string `toml:"jwt_secret"`
	EncryptionKey string `toml:"encryption_key"`
	WebhookSecret string `toml:"webhook_secret"`

	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Storage   StorageConfig   `toml:"storage"`
	RateLimit RateLimitConfig `toml:"rate_limit"`

	// ProviderKeys holds server-wide API keys by provider name. They are used
	// when a user has not stored a key of their own.
	ProviderKeys map[string]string `toml:"provider_keys"`
}

// ProviderEnvVars maps provider names to the environment variable holding the
// server-wide key.
var ProviderEnvVars = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"perplexity": "PERPLEXITY_API_KEY",
	"google":     "GOOGLE_GENERATIVE_AI_API_KEY",
	"anthropic":  "ANTHROPIC_API_KEY",
	"xai":        "XAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

func Default() *Config {
	return &Config{
		HTTPPort: "8080",
		LogLevel: "INFO",
		Database: DatabaseConfig{
			Backend:    BackendSQLite,
			SQLitePath: "vid0.db",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		RateLimit: RateLimitConfig{
			RPS:   2,
			Burst: 10,
		},
		ProviderKeys: map[string]string{},
	}
}

// Load builds the configuration from defaults, then the optional TOML file at
// path, then .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if cfg.ProviderKeys == nil {
			cfg.ProviderKeys = map[string]string{}
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.EncryptionKey = getEnv("ENCRYPTION_KEY", cfg.EncryptionKey)
	cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", cfg.WebhookSecret)

	cfg.Database.Backend = getEnv("DB_BACKEND", cfg.Database.Backend)
	cfg.Database.SQLitePath = getEnv("DATABASE_URL", cfg.Database.SQLitePath)
	cfg.Database.PostgresDSN = getEnv("POSTGRES_DSN", cfg.Database.PostgresDSN)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Storage.Bucket = getEnv("S3_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.Region = getEnv("S3_REGION", cfg.Storage.Region)
	cfg.Storage.Endpoint = getEnv("S3_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnv("S3_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("S3_SECRET_KEY", cfg.Storage.SecretKey)

	cfg.RateLimit.RPS = getEnvAsFloat("RATE_LIMIT_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)

	for provider, key := range ProviderEnvVars {
		if v := getEnv(key, ""); v != "" {
			cfg.ProviderKeys[provider] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	}
	if c.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY environment variable is required"))
	}
	switch c.Database.Backend {
	case BackendSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("DATABASE_URL must not be empty for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Database.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_BACKEND %q", c.Database.Backend))
	}
	return errors.Join(errs...)
}

// ProviderKey returns the server-wide key for a provider, or "".
func (c *Config) ProviderKey(provider string) string {
	return c.ProviderKeys[provider]
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
