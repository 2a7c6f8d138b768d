package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Log      LogConfig
	Cache    CacheConfig
	Snapshot SnapshotConfig
	Upstream UpstreamConfig
	Retry    RetryConfig
	Search   SearchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"chronolookup-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	AdminKey    string `envconfig:"ADMIN_KEY" default:""`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Expiry        time.Duration `envconfig:"CACHE_EXPIRY" default:"24h"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1h"`
}

// SnapshotConfig selects where cache snapshots are persisted.
type SnapshotConfig struct {
	Store string `envconfig:"SNAPSHOT_STORE" default:"sqlite"` // sqlite, postgres, mysql, redis or none
	Path  string `envconfig:"SNAPSHOT_SQLITE_PATH" default:"./data/snapshots.db"`

	// PostgreSQL settings
	PostgresHost     string `envconfig:"SNAPSHOT_PG_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"SNAPSHOT_PG_PORT" default:"5432"`
	PostgresName     string `envconfig:"SNAPSHOT_PG_NAME" default:"chronolookup"`
	PostgresUser     string `envconfig:"SNAPSHOT_PG_USER" default:"postgres"`
	PostgresPassword string `envconfig:"SNAPSHOT_PG_PASS" default:""`
	PostgresSSLMode  string `envconfig:"SNAPSHOT_PG_SSLMODE" default:"disable"`

	// MySQL settings
	MySQLHost     string `envconfig:"SNAPSHOT_MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"SNAPSHOT_MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"SNAPSHOT_MYSQL_NAME" default:"chronolookup"`
	MySQLUser     string `envconfig:"SNAPSHOT_MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"SNAPSHOT_MYSQL_PASS" default:""`

	// Redis settings
	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"chronolookup:snapshot"`
}

// UpstreamConfig holds the third-party API endpoints.
type UpstreamConfig struct {
	Timeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`

	// ProxyChain is tried in order for game-data calls. An empty entry means a direct request.
	ProxyChain []string `envconfig:"UPSTREAM_PROXY_CHAIN" default:""`

	SearchURL    string `envconfig:"UPSTREAM_SEARCH_URL" default:"https://chronostory.onrender.com/api/unified-search"`
	ItemInfoURL  string `envconfig:"UPSTREAM_ITEM_INFO_URL" default:"https://chronostory.onrender.com/api/item-info"`
	MobInfoURL   string `envconfig:"UPSTREAM_MOB_INFO_URL" default:"https://chronostory.onrender.com/api/mob-info"`
	MobSearchURL string `envconfig:"UPSTREAM_MOB_SEARCH_URL" default:"https://chronostory.onrender.com/api/mob-search"`
	MobDropsURL  string `envconfig:"UPSTREAM_MOB_DROPS_URL" default:"https://chronostory.onrender.com/api/mob-drops"`

	SpriteBaseURL string `envconfig:"UPSTREAM_SPRITE_BASE_URL" default:"https://chronostory.onrender.com"`
	IconBaseURL   string `envconfig:"UPSTREAM_ICON_BASE_URL" default:"https://maplestory.io/api/GMS/62"`
	RenderBaseURL string `envconfig:"UPSTREAM_RENDER_BASE_URL" default:"https://maplestory.io/api/gms/83"`

	// Locale endpoints used by the name translation tool.
	LocaleTWBaseURL string `envconfig:"UPSTREAM_LOCALE_TW_URL" default:"https://maplestory.io/api/TWMS/256"`
	LocaleENBaseURL string `envconfig:"UPSTREAM_LOCALE_EN_URL" default:"https://maplestory.io/api/GMS/83"`
	LocaleENLookup  string `envconfig:"UPSTREAM_LOCALE_EN_LOOKUP_URL" default:"https://maplestory.io/api/GMS/62"`
}

// RetryConfig holds the search retry policy.
type RetryConfig struct {
	MaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
}

// SearchConfig holds search session settings.
type SearchConfig struct {
	DebounceDelay  time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"300ms"`
	SessionIdleTTL time.Duration `envconfig:"SEARCH_SESSION_IDLE_TTL" default:"30m"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *SnapshotConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.PostgresUser, s.PostgresPassword, s.PostgresHost, s.PostgresPort, s.PostgresName, s.PostgresSSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *SnapshotConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.MySQLUser, s.MySQLPassword, s.MySQLHost, s.MySQLPort, s.MySQLName)
}

// RedisAddress returns the Redis address in host:port format.
func (s *SnapshotConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Validate rejects settings the pipelines cannot run with.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must not be negative")
	}
	if c.Cache.Expiry <= 0 {
		return fmt.Errorf("CACHE_EXPIRY must be positive")
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be positive")
	}
	switch c.Snapshot.Store {
	case "sqlite", "postgres", "postgresql", "mysql", "redis", "none":
	default:
		return fmt.Errorf("unknown SNAPSHOT_STORE %q", c.Snapshot.Store)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
