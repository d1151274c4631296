package config

import (
	"fmt"
	"time"

	"habitat-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Catalog   CatalogConfig
	Editor    EditorConfig
	Session   SessionConfig
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	CookieSecure    bool
	CookieSameSite  string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

// RateLimitConfig drives both limiters: the in-process token bucket and,
// when Redis is enabled, the shared fixed window.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	WindowRequests    int
	Window            time.Duration
	TrustProxy        bool
}

const (
	CatalogSourceYAML     = "yaml"
	CatalogSourceDatabase = "database"
)

type CatalogConfig struct {
	Source        string
	Path          string
	SpritePattern string
	FallbackColor string
	ShapeFiles    map[string]string
}

type EditorConfig struct {
	InitialScale     float64
	MinScale         float64
	MaxScale         float64
	ZoomFactor       float64
	PlacementOrigin  float64
	PlacementSpan    float64
	BaseModuleSize   float64
	ConnectionUpkeep float64
}

type SessionConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Catalog:   loadCatalogConfig(),
		Editor:    loadEditorConfig(),
		Session:   loadSessionConfig(),
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(utils.GetEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)) * time.Second,
		WriteTimeout: time.Duration(utils.GetEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
		IdleTimeout:  time.Duration(utils.GetEnvInt("SERVER_IDLE_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Enabled:         utils.GetEnv("DB_ENABLED", "false") == "true",
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "habitat"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(utils.GetEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  utils.GetEnv("REDIS_ENABLED", "false") == "true",
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       utils.GetEnvInt("REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(utils.GetEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		CookieSecure:    environment == "production",
		CookieSameSite:  utils.GetEnv("COOKIE_SAME_SITE", "lax"),
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: utils.GetEnv("CORS_DEBUG", "") == "true",
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		JSONFormat: environment == "production",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RequestsPerSecond: utils.GetEnvFloat("RATE_LIMIT_REQUESTS_PER_SECOND", 30),
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 60),
		WindowRequests:    utils.GetEnvInt("RATE_LIMIT_WINDOW_REQUESTS", 1200),
		Window:            time.Duration(utils.GetEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		TrustProxy:        utils.GetEnvBool("RATE_LIMIT_TRUST_PROXY", false),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Source:        utils.GetEnv("CATALOG_SOURCE", CatalogSourceYAML),
		Path:          utils.GetEnv("CATALOG_PATH", ""),
		SpritePattern: utils.GetEnv("CATALOG_SPRITE_PATTERN", "img/{type}_{shape}.png"),
		FallbackColor: utils.GetEnv("CATALOG_FALLBACK_COLOR", "#ccc"),
		ShapeFiles:    utils.GetEnvMap("CATALOG_SHAPE_FILES", "box=cubo,cylinder=cilindro,dome=semiesfera"),
	}
}

func loadEditorConfig() EditorConfig {
	return EditorConfig{
		InitialScale:     utils.GetEnvFloat("EDITOR_INITIAL_SCALE", 0.2),
		MinScale:         utils.GetEnvFloat("EDITOR_MIN_SCALE", 0.05),
		MaxScale:         utils.GetEnvFloat("EDITOR_MAX_SCALE", 2.0),
		ZoomFactor:       utils.GetEnvFloat("EDITOR_ZOOM_FACTOR", 1.1),
		PlacementOrigin:  utils.GetEnvFloat("EDITOR_PLACEMENT_ORIGIN", 2000),
		PlacementSpan:    utils.GetEnvFloat("EDITOR_PLACEMENT_SPAN", 2000),
		BaseModuleSize:   utils.GetEnvFloat("EDITOR_BASE_MODULE_SIZE", 1000),
		ConnectionUpkeep: utils.GetEnvFloat("EDITOR_CONNECTION_UPKEEP", 0.5),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		IdleTTL:         time.Duration(utils.GetEnvInt("SESSION_IDLE_TTL_MINUTES", 60)) * time.Minute,
		CleanupInterval: time.Duration(utils.GetEnvInt("SESSION_CLEANUP_INTERVAL_SECONDS", 60)) * time.Second,
		MaxSessions:     utils.GetEnvInt("SESSION_MAX", 1000),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	}

	switch c.Catalog.Source {
	case CatalogSourceYAML:
	case CatalogSourceDatabase:
		if !c.Database.Enabled {
			return fmt.Errorf("CATALOG_SOURCE=database requires DB_ENABLED=true")
		}
	default:
		return fmt.Errorf("CATALOG_SOURCE must be %q or %q, got %q", CatalogSourceYAML, CatalogSourceDatabase, c.Catalog.Source)
	}

	e := c.Editor
	if e.MinScale <= 0 || e.MaxScale < e.MinScale {
		return fmt.Errorf("EDITOR_MIN_SCALE and EDITOR_MAX_SCALE must satisfy 0 < min <= max")
	}
	if e.InitialScale < e.MinScale || e.InitialScale > e.MaxScale {
		return fmt.Errorf("EDITOR_INITIAL_SCALE must be within [%g, %g]", e.MinScale, e.MaxScale)
	}
	if e.ZoomFactor <= 1 {
		return fmt.Errorf("EDITOR_ZOOM_FACTOR must be greater than 1")
	}
	if e.BaseModuleSize <= 0 {
		return fmt.Errorf("EDITOR_BASE_MODULE_SIZE must be positive")
	}

	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("SESSION_MAX must be at least 1")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL_MINUTES must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize < 1) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST_SIZE must be positive")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
