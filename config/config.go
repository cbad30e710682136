package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application behaviour
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// S3-compatible media store
	S3 S3Config `mapstructure:"s3"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// AppConfig enumerates the recognized behavioural knobs with explicit defaults.
// The support contact lives here so no handler carries a hard-coded phone number.
type AppConfig struct {
	BaseURL                string `mapstructure:"base_url"`
	UploadLimitDefault     int    `mapstructure:"upload_limit_default"`
	SessionDurationSeconds int    `mapstructure:"session_duration_seconds"`
	MaxViewsPerSession     int    `mapstructure:"max_views_per_session"`
	ScreenshotCooldownMs   int    `mapstructure:"screenshot_cooldown_ms"`
	ScreenshotDebounceMs   int    `mapstructure:"screenshot_debounce_ms"`
	IdleTimeoutMs          int    `mapstructure:"idle_timeout_ms"`
	ToastDurationMs        int    `mapstructure:"toast_duration_ms"`
	SupportContact         string `mapstructure:"support_contact"`
	MediaTokenTTLSeconds   int    `mapstructure:"media_token_ttl_seconds"`
	MediaTokenSecret       string `mapstructure:"media_token_secret"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.upload_limit_default", 5)
	v.SetDefault("app.session_duration_seconds", 600)
	v.SetDefault("app.max_views_per_session", 3)
	v.SetDefault("app.screenshot_cooldown_ms", 2500)
	v.SetDefault("app.screenshot_debounce_ms", 1000)
	v.SetDefault("app.idle_timeout_ms", 60000)
	v.SetDefault("app.toast_duration_ms", 3000)
	v.SetDefault("app.support_contact", "support@secureview.example")
	v.SetDefault("app.media_token_ttl_seconds", 60)
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.base_url", "APP_BASE_URL")
	v.BindEnv("app.upload_limit_default", "APP_UPLOAD_LIMIT_DEFAULT")
	v.BindEnv("app.session_duration_seconds", "APP_SESSION_DURATION_SECONDS")
	v.BindEnv("app.max_views_per_session", "APP_MAX_VIEWS_PER_SESSION")
	v.BindEnv("app.support_contact", "APP_SUPPORT_CONTACT")
	v.BindEnv("app.media_token_secret", "APP_MEDIA_TOKEN_SECRET")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// S3 media store
	v.BindEnv("s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.public_base_url", "S3_PUBLIC_BASE_URL")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")
}
