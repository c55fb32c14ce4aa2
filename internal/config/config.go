package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	CatalogPostgres = "postgres"
	CatalogStatic   = "static"

	ResultsPostgres = "postgres"
	ResultsMongo    = "mongo"
	ResultsNone     = "none"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	CatalogSource    string        `mapstructure:"CATALOG_SOURCE"`
	CatalogCacheTTL  time.Duration `mapstructure:"CATALOG_CACHE_TTL"`
	ResultsBackend   string        `mapstructure:"RESULTS_BACKEND"`
	MongoURL         string        `mapstructure:"MONGO_URL"`
	MongoDatabase    string        `mapstructure:"MONGO_DATABASE"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RemoteScoringURL string        `mapstructure:"REMOTE_SCORING_URL"`
	RemoteTimeout    time.Duration `mapstructure:"REMOTE_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "CATALOG_SOURCE", "CATALOG_CACHE_TTL",
	"RESULTS_BACKEND", "MONGO_URL", "MONGO_DATABASE",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "REMOTE_SCORING_URL", "REMOTE_TIMEOUT",
}

// Load reads the configuration from the environment and an optional .env
// file. It does not check that the result is runnable; see Validate.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CATALOG_SOURCE", CatalogStatic)
	v.SetDefault("CATALOG_CACHE_TTL", "10m")
	v.SetDefault("RESULTS_BACKEND", ResultsNone)
	v.SetDefault("MONGO_DATABASE", "wellcheck")
	v.SetDefault("AUTH_ISSUER", "wellcheck")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("REMOTE_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins)
	cfg.CatalogSource = strings.ToLower(cfg.CatalogSource)
	cfg.ResultsBackend = strings.ToLower(cfg.ResultsBackend)
	return cfg, nil
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// NeedsPostgres reports whether any configured component stores data in PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.CatalogSource == CatalogPostgres || c.ResultsBackend == ResultsPostgres
}

// Validate checks that the configuration is safe to serve with.
func (c *Config) Validate() error {
	switch c.CatalogSource {
	case CatalogPostgres, CatalogStatic:
	default:
		return fmt.Errorf("CATALOG_SOURCE must be %q or %q, got %q", CatalogPostgres, CatalogStatic, c.CatalogSource)
	}
	switch c.ResultsBackend {
	case ResultsPostgres, ResultsMongo, ResultsNone:
	default:
		return fmt.Errorf("RESULTS_BACKEND must be %q, %q or %q, got %q", ResultsPostgres, ResultsMongo, ResultsNone, c.ResultsBackend)
	}
	if c.NeedsPostgres() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when CATALOG_SOURCE or RESULTS_BACKEND is postgres")
	}
	if c.ResultsBackend == ResultsMongo && c.MongoURL == "" {
		return fmt.Errorf("MONGO_URL is required when RESULTS_BACKEND is mongo")
	}
	if !c.IsDev() && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY of at least 32 bytes is required outside development (ENV=%q)", c.Env)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	return nil
}
