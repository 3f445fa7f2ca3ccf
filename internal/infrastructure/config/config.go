package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Telemetry  TelemetryConfig
	Cart       CartConfig
	Accounting AccountingConfig
	Sync       SyncConfig
	Webhook    WebhookConfig
	Scheduler  SchedulerConfig
	Archive    ArchiveConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool
	DBLogFullSQL      bool // dev only
	DBSlowQueryThresh time.Duration
}

// CartConfig holds the storefront cart REST API settings
type CartConfig struct {
	BaseURL    string
	SecureURL  string
	PrivateKey string
	Token      string
	Timeout    time.Duration
	PageSize   int
}

// AccountingConfig holds the accounting system REST API settings
type AccountingConfig struct {
	BaseURL           string
	AccountID         string
	ConsumerKey       string
	ConsumerSecret    string
	TokenID           string
	TokenSecret       string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	QueryLimit        int
}

// SyncConfig holds the order sync behavior settings
type SyncConfig struct {
	ExternalRefPrefix     string
	SubsidiaryID          int
	DepartmentID          int
	ShipImmediatelyField  string
	CustomerNameSeparator string
	DefaultCountry        string
	DropShipMarkers       []string
	CatalogKeySource      string // catalog_id or item_id
	ValidateItems         bool
	MaxBatchSize          int
	BulkDelay             time.Duration
}

// WebhookConfig holds cart webhook settings
type WebhookConfig struct {
	// SharedSecret, when set, must match the X-Webhook-Token header
	SharedSecret  string
	ReplayEnabled bool
	ReplayTTL     time.Duration
	// RequireRedis disables the in-memory fallback for the replay store
	RequireRedis bool
	// RateLimitRPS and RateLimitBurst bound deliveries per client IP; 0 disables
	RateLimitRPS   float64
	RateLimitBurst int
}

// SchedulerConfig holds periodic order pull settings
type SchedulerConfig struct {
	Enabled      bool
	Interval     time.Duration
	Lookback     time.Duration
	InitialDelay time.Duration
	JobTimeout   time.Duration
	OrderStatus  int // 0 pulls every status
}

// ArchiveConfig holds S3 payload archive settings
type ArchiveConfig struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	KeyPrefix    string
	EnsureBucket bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_ACCOUNTING_TOKEN_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ordersync")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Cart: CartConfig{
			BaseURL:    v.GetString("cart.base_url"),
			SecureURL:  v.GetString("cart.secure_url"),
			PrivateKey: v.GetString("cart.private_key"),
			Token:      v.GetString("cart.token"),
			Timeout:    v.GetDuration("cart.timeout"),
			PageSize:   v.GetInt("cart.page_size"),
		},
		Accounting: AccountingConfig{
			BaseURL:           v.GetString("accounting.base_url"),
			AccountID:         v.GetString("accounting.account_id"),
			ConsumerKey:       v.GetString("accounting.consumer_key"),
			ConsumerSecret:    v.GetString("accounting.consumer_secret"),
			TokenID:           v.GetString("accounting.token_id"),
			TokenSecret:       v.GetString("accounting.token_secret"),
			Timeout:           v.GetDuration("accounting.timeout"),
			RequestsPerSecond: v.GetFloat64("accounting.requests_per_second"),
			Burst:             v.GetInt("accounting.burst"),
			QueryLimit:        v.GetInt("accounting.query_limit"),
		},
		Sync: SyncConfig{
			ExternalRefPrefix:     v.GetString("sync.external_ref_prefix"),
			SubsidiaryID:          v.GetInt("sync.subsidiary_id"),
			DepartmentID:          v.GetInt("sync.department_id"),
			ShipImmediatelyField:  v.GetString("sync.ship_immediately_field"),
			CustomerNameSeparator: v.GetString("sync.customer_name_separator"),
			DefaultCountry:        v.GetString("sync.default_country"),
			DropShipMarkers:       v.GetStringSlice("sync.drop_ship_markers"),
			CatalogKeySource:      v.GetString("sync.catalog_key_source"),
			ValidateItems:         v.GetBool("sync.validate_items"),
			MaxBatchSize:          v.GetInt("sync.max_batch_size"),
			BulkDelay:             v.GetDuration("sync.bulk_delay"),
		},
		Webhook: WebhookConfig{
			SharedSecret:  v.GetString("webhook.shared_secret"),
			ReplayEnabled: !v.IsSet("webhook.replay_enabled") || v.GetBool("webhook.replay_enabled"),
			ReplayTTL:     v.GetDuration("webhook.replay_ttl"),
			RequireRedis:  v.GetBool("webhook.require_redis"),

			RateLimitRPS:   v.GetFloat64("webhook.rate_limit_rps"),
			RateLimitBurst: v.GetInt("webhook.rate_limit_burst"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			Interval:     v.GetDuration("scheduler.interval"),
			Lookback:     v.GetDuration("scheduler.lookback"),
			InitialDelay: v.GetDuration("scheduler.initial_delay"),
			JobTimeout:   v.GetDuration("scheduler.job_timeout"),
			OrderStatus:  v.GetInt("scheduler.order_status"),
		},
		Archive: ArchiveConfig{
			Enabled:      v.GetBool("archive.enabled"),
			Bucket:       v.GetString("archive.bucket"),
			Region:       v.GetString("archive.region"),
			Endpoint:     v.GetString("archive.endpoint"),
			AccessKey:    v.GetString("archive.access_key"),
			SecretKey:    v.GetString("archive.secret_key"),
			UseSSL:       v.GetBool("archive.use_ssl"),
			UsePathStyle: v.GetBool("archive.use_path_style"),
			KeyPrefix:    v.GetString("archive.key_prefix"),
			EnsureBucket: v.GetBool("archive.ensure_bucket"),
		},
	}

	applyDefaults(cfg, v)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ordersync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ordersync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// bulk sync of a full batch runs inside one request
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 5 << 20 // 5MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Cart.Timeout == 0 {
		cfg.Cart.Timeout = 30 * time.Second
	}
	if cfg.Cart.PageSize == 0 {
		cfg.Cart.PageSize = 100
	}
	if cfg.Accounting.Timeout == 0 {
		cfg.Accounting.Timeout = 60 * time.Second
	}
	if cfg.Accounting.RequestsPerSecond == 0 {
		cfg.Accounting.RequestsPerSecond = 4
	}
	if cfg.Accounting.Burst == 0 {
		cfg.Accounting.Burst = 2
	}
	if cfg.Accounting.QueryLimit == 0 {
		cfg.Accounting.QueryLimit = 1000
	}
	if cfg.Sync.ExternalRefPrefix == "" {
		cfg.Sync.ExternalRefPrefix = "CART-"
	}
	if cfg.Sync.ShipImmediatelyField == "" {
		cfg.Sync.ShipImmediatelyField = "custbody_ship_immediately"
	}
	if cfg.Sync.CustomerNameSeparator == "" {
		cfg.Sync.CustomerNameSeparator = " - "
	}
	if cfg.Sync.DefaultCountry == "" {
		cfg.Sync.DefaultCountry = "US"
	}
	if cfg.Sync.CatalogKeySource == "" {
		cfg.Sync.CatalogKeySource = "catalog_id"
	}
	if cfg.Sync.MaxBatchSize == 0 {
		cfg.Sync.MaxBatchSize = 100
	}
	// an explicit 0s disables the pause
	if !v.IsSet("sync.bulk_delay") {
		cfg.Sync.BulkDelay = 500 * time.Millisecond
	}
	if cfg.Webhook.ReplayTTL == 0 {
		cfg.Webhook.ReplayTTL = 24 * time.Hour
	}
	if !v.IsSet("webhook.rate_limit_rps") {
		cfg.Webhook.RateLimitRPS = 20
	}
	if cfg.Webhook.RateLimitBurst == 0 {
		cfg.Webhook.RateLimitBurst = 40
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 15 * time.Minute
	}
	if cfg.Scheduler.Lookback == 0 {
		cfg.Scheduler.Lookback = 24 * time.Hour
	}
	if !v.IsSet("scheduler.initial_delay") {
		cfg.Scheduler.InitialDelay = 30 * time.Second
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Archive.KeyPrefix == "" {
		cfg.Archive.KeyPrefix = "ordersync"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	switch c.Sync.CatalogKeySource {
	case "catalog_id", "item_id":
	default:
		return fmt.Errorf("sync.catalog_key_source must be catalog_id or item_id, got %q", c.Sync.CatalogKeySource)
	}
	if c.Sync.MaxBatchSize < 0 {
		return fmt.Errorf("sync.max_batch_size cannot be negative")
	}
	if c.Sync.BulkDelay < 0 {
		return fmt.Errorf("sync.bulk_delay cannot be negative")
	}
	if c.Accounting.RequestsPerSecond < 0 || c.Accounting.Burst < 0 {
		return fmt.Errorf("accounting.requests_per_second and accounting.burst cannot be negative")
	}
	if c.Webhook.RateLimitRPS < 0 || c.Webhook.RateLimitBurst < 0 {
		return fmt.Errorf("webhook.rate_limit_rps and webhook.rate_limit_burst cannot be negative")
	}
	if c.Scheduler.OrderStatus < 0 || c.Scheduler.OrderStatus > 10 {
		return fmt.Errorf("scheduler.order_status must be between 0 and 10, got %d", c.Scheduler.OrderStatus)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required when archive.enabled is true")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
		if c.Webhook.SharedSecret == "" {
			return fmt.Errorf("webhook.shared_secret is required in production")
		}
	}

	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
