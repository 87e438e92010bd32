package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Clerk     ClerkConfig
	Storage   StorageConfig
	Redis     RedisConfig
	FCM       FCMConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Sync      SyncConfig
	Reminder  ReminderConfig
}

type ServerConfig struct {
	Port            string
	Mode            string
	LogFile         string `mapstructure:"log_file"`
	DefaultTimezone string `mapstructure:"default_timezone"`
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type ClerkConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type StorageConfig struct {
	Type           string `mapstructure:"type"`
	LocalPath      string `mapstructure:"local_path"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured; the sync queue falls
// back to memory otherwise.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type FCMConfig struct {
	// ServiceAccountJSON is base64 encoded and wins over CredentialsFile.
	ServiceAccountJSON string `mapstructure:"service_account_json"`
	CredentialsFile    string `mapstructure:"credentials_file"`
}

type MetricsConfig struct {
	User        string
	Pass        string
	PprofSecret string `mapstructure:"pprof_secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SyncConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	QueueKey    string        `mapstructure:"queue_key"`
}

type ReminderConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3333")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.log_file", "logs/app.log")
	v.SetDefault("server.default_timezone", "America/New_York")

	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./uploads")
	v.SetDefault("storage.public_base_url", "/uploads")

	v.SetDefault("redis.port", 6379)

	v.SetDefault("fcm.credentials_file", "./serviceAccountKey.json")

	v.SetDefault("rate_limit.requests_per_second", 5)
	v.SetDefault("rate_limit.burst", 30)

	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.queue_key", "gothenine:sync")

	v.SetDefault("reminder.tick", time.Minute)
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.log_file", "LOG_FILE")
	v.BindEnv("server.default_timezone", "DEFAULT_TIMEZONE")

	v.BindEnv("database.url", "DATABASE_URL")

	v.BindEnv("clerk.secret_key", "CLERK_SECRET_KEY")
	v.BindEnv("clerk.webhook_secret", "CLERK_WEBHOOK_SECRET")

	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.local_path", "STORAGE_LOCAL_PATH")
	v.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")
	v.BindEnv("storage.minio_use_ssl", "MINIO_USE_SSL")

	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("fcm.service_account_json", "FCM_SERVICE_ACCOUNT_JSON")
	v.BindEnv("fcm.credentials_file", "FCM_CREDENTIALS_FILE")

	v.BindEnv("metrics.user", "METRICS_USER")
	v.BindEnv("metrics.pass", "METRICS_PASS")
	v.BindEnv("metrics.pprof_secret", "PPROF_SECRET")

	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	v.BindEnv("rate_limit.requests_per_second", "RATE_LIMIT_RPS")
	v.BindEnv("rate_limit.burst", "RATE_LIMIT_BURST")

	v.BindEnv("sync.max_attempts", "SYNC_MAX_ATTEMPTS")
	v.BindEnv("sync.interval", "SYNC_INTERVAL")

	v.BindEnv("reminder.tick", "REMINDER_TICK")
}

// Load reads .env (if any), an optional config.yaml under path, and the
// process environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.AddConfigPath(path + "/config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	if c.Server.Mode == "release" && c.Clerk.SecretKey == "" {
		return errors.New("CLERK_SECRET_KEY environment variable is not set")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be at least 1, got %d", c.Sync.MaxAttempts)
	}
	return nil
}

func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}
