package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "udara.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "UDARA_PORT")
	setString(&cfg.Server.CORSOrigin, "UDARA_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "UDARA_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "UDARA_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "UDARA_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "UDARA_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "UDARA_PG_HEALTH_CHECK")
	setString(&cfg.Sheets.BaseURL, "UDARA_SHEETS_BASE_URL")
	setString(&cfg.Sheets.APIKey, "GOOGLE_SHEETS_API_KEY")
	setString(&cfg.Sheets.DefaultSheetID, "GOOGLE_SHEETS_ID")
	setString(&cfg.Sheets.DefaultWorksheet, "UDARA_SHEETS_WORKSHEET")
	setDuration(&cfg.Sheets.FetchTimeout, "UDARA_SHEETS_FETCH_TIMEOUT")
	setDuration(&cfg.Sheets.CacheTTL, "UDARA_SHEETS_CACHE_TTL")
	setString(&cfg.Groq.BaseURL, "UDARA_GROQ_BASE_URL")
	setString(&cfg.Groq.APIKey, "GROQ_API_KEY")
	setString(&cfg.Groq.Model, "UDARA_GROQ_MODEL")
	setDuration(&cfg.Groq.Timeout, "UDARA_GROQ_TIMEOUT")
	setInt(&cfg.Groq.MaxTokens, "UDARA_GROQ_MAX_TOKENS")
	setString(&cfg.Auth.JWTSecret, "UDARA_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenExpiry, "UDARA_ACCESS_TOKEN_EXPIRY")
	setInt(&cfg.Auth.BcryptCost, "UDARA_BCRYPT_COST")
	setString(&cfg.Logging.Level, "UDARA_LOG_LEVEL")
	setString(&cfg.Logging.Service, "UDARA_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "UDARA_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "UDARA_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "UDARA_RATE_RPS")
	setInt(&cfg.Rate.Burst, "UDARA_RATE_BURST")
	setInt64(&cfg.Cache.TipsMaxSizeMB, "UDARA_CACHE_TIPS_SIZE_MB")
	setDuration(&cfg.Cache.TipsTTL, "UDARA_CACHE_TIPS_TTL")
	setBool(&cfg.Telemetry.Enabled, "UDARA_TELEMETRY_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Sheets.CacheTTL <= 0 {
		return errors.New("sheets.cache_ttl must be positive")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set UDARA_JWT_SECRET)")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
