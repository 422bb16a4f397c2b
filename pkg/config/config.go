package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/docvault/pkg/observability"
	"github.com/platinummonkey/docvault/pkg/policy"
	"github.com/platinummonkey/docvault/pkg/secrets"
	"github.com/platinummonkey/docvault/pkg/storage"
)

// Environment variables read without the DOCVAULT_ prefix.
const (
	EnvEncryptionKey = secrets.EnvKey
	EnvJWTSecret     = "JWT_SECRET"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvConfigFile    = "DOCVAULT_CONFIG_FILE"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       storage.Config
	Observability ObservabilityConfig
	Security      SecurityConfig
	Policy        policy.RemoteConfig
	Audit         AuditConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TrustProxy      bool

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
	OTel           observability.OTelConfig
}

// SecurityConfig holds the process secrets. They are only ever read from
// the environment, never from the config file.
type SecurityConfig struct {
	EncryptionKey string
	JWTSecret     string
	TokenTTL      time.Duration
}

// AuditConfig controls where audit events go and how long they are kept.
type AuditConfig struct {
	Sink              string // "db", "log" or "both"
	RetentionDays     int
	RetentionSchedule string
}

// CacheConfig sizes the per-request profile cache.
type CacheConfig struct {
	ProfileSize int
	ProfileTTL  time.Duration
}

// RateLimitConfig sets the limits on sign-in and key submission.
type RateLimitConfig struct {
	LoginPerMinute        int
	LoginBurst            int
	KeySubmissionsPerHour int
}

// Defaults returns the configuration used before any file or environment
// overrides are applied.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Observability: ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
			OTel: observability.OTelConfig{
				Endpoint:       "localhost:4317",
				ServiceName:    "docvault",
				ServiceVersion: "dev",
				Insecure:       true,
				SampleRatio:    1,
			},
		},
		Security: SecurityConfig{TokenTTL: 12 * time.Hour},
		Policy:   policy.RemoteConfig{Timeout: 2 * time.Second, RetryMax: 2},
		Audit: AuditConfig{
			Sink:              "both",
			RetentionDays:     365,
			RetentionSchedule: "@daily",
		},
		Cache: CacheConfig{ProfileSize: 10000, ProfileTTL: 5 * time.Second},
		RateLimit: RateLimitConfig{
			LoginPerMinute:        10,
			LoginBurst:            5,
			KeySubmissionsPerHour: 20,
		},
	}
}

// LoadConfig loads configuration from defaults, then the YAML file named by
// DOCVAULT_CONFIG_FILE, then environment variables. A .env file in the
// working directory is read first and never overrides variables already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto c.
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("DOCVAULT_HOST", s.Host)
	s.Port = getEnv("DOCVAULT_PORT", s.Port)
	s.HealthPort = getEnv("DOCVAULT_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("DOCVAULT_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("DOCVAULT_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("DOCVAULT_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("DOCVAULT_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.TrustProxy = getEnvBool("DOCVAULT_TRUST_PROXY", s.TrustProxy)

	st := &c.Storage
	st.PostgresURL = getEnv(EnvDatabaseURL, st.PostgresURL)
	st.PostgresMaxConns = getEnvInt("DOCVAULT_POSTGRES_MAX_CONNS", st.PostgresMaxConns)
	st.PostgresMinConns = getEnvInt("DOCVAULT_POSTGRES_MIN_CONNS", st.PostgresMinConns)
	st.PostgresTimeout = getEnvDuration("DOCVAULT_POSTGRES_TIMEOUT", st.PostgresTimeout)
	st.Type = getEnv("DOCVAULT_STORAGE_TYPE", st.Type)
	st.FilesystemRoot = getEnv("DOCVAULT_FILESYSTEM_ROOT", st.FilesystemRoot)
	st.S3Endpoint = getEnv("DOCVAULT_S3_ENDPOINT", st.S3Endpoint)
	st.S3Region = getEnv("DOCVAULT_S3_REGION", st.S3Region)
	st.S3Bucket = getEnv("DOCVAULT_S3_BUCKET", st.S3Bucket)
	st.S3AccessKey = getEnv("DOCVAULT_S3_ACCESS_KEY", st.S3AccessKey)
	st.S3SecretKey = getEnv("DOCVAULT_S3_SECRET_KEY", st.S3SecretKey)
	st.S3UsePathStyle = getEnvBool("DOCVAULT_S3_USE_PATH_STYLE", st.S3UsePathStyle)
	st.RedisURL = getEnv("DOCVAULT_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("DOCVAULT_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("DOCVAULT_REDIS_DB", st.RedisDB)
	st.RedisPoolSize = getEnvInt("DOCVAULT_REDIS_POOL_SIZE", st.RedisPoolSize)

	o := &c.Observability
	if level := os.Getenv("DOCVAULT_LOG_LEVEL"); level != "" {
		o.LogLevel = observability.ParseLevel(level)
	}
	o.MetricsEnabled = getEnvBool("DOCVAULT_METRICS_ENABLED", o.MetricsEnabled)
	o.OTel.Enabled = getEnvBool("DOCVAULT_OTEL_ENABLED", o.OTel.Enabled)
	o.OTel.Endpoint = getEnv("DOCVAULT_OTEL_ENDPOINT", o.OTel.Endpoint)
	o.OTel.ServiceName = getEnv("DOCVAULT_OTEL_SERVICE_NAME", o.OTel.ServiceName)
	o.OTel.ServiceVersion = getEnv("DOCVAULT_OTEL_SERVICE_VERSION", o.OTel.ServiceVersion)
	o.OTel.Insecure = getEnvBool("DOCVAULT_OTEL_INSECURE", o.OTel.Insecure)
	o.OTel.SampleRatio = getEnvFloat("DOCVAULT_OTEL_SAMPLE_RATIO", o.OTel.SampleRatio)

	c.Security.EncryptionKey = os.Getenv(EnvEncryptionKey)
	c.Security.JWTSecret = os.Getenv(EnvJWTSecret)
	c.Security.TokenTTL = getEnvDuration("DOCVAULT_TOKEN_TTL", c.Security.TokenTTL)

	c.Policy.URL = getEnv("DOCVAULT_PDP_URL", c.Policy.URL)
	c.Policy.Token = os.Getenv("DOCVAULT_PDP_TOKEN")
	c.Policy.Timeout = getEnvDuration("DOCVAULT_PDP_TIMEOUT", c.Policy.Timeout)
	c.Policy.RetryMax = getEnvInt("DOCVAULT_PDP_RETRY_MAX", c.Policy.RetryMax)

	c.Audit.Sink = getEnv("DOCVAULT_AUDIT_SINK", c.Audit.Sink)
	c.Audit.RetentionDays = getEnvInt("DOCVAULT_AUDIT_RETENTION_DAYS", c.Audit.RetentionDays)
	c.Audit.RetentionSchedule = getEnv("DOCVAULT_AUDIT_RETENTION_SCHEDULE", c.Audit.RetentionSchedule)

	c.Cache.ProfileSize = getEnvInt("DOCVAULT_PROFILE_CACHE_SIZE", c.Cache.ProfileSize)
	c.Cache.ProfileTTL = getEnvDuration("DOCVAULT_PROFILE_CACHE_TTL", c.Cache.ProfileTTL)

	c.RateLimit.LoginPerMinute = getEnvInt("DOCVAULT_LOGIN_PER_MINUTE", c.RateLimit.LoginPerMinute)
	c.RateLimit.LoginBurst = getEnvInt("DOCVAULT_LOGIN_BURST", c.RateLimit.LoginBurst)
	c.RateLimit.KeySubmissionsPerHour = getEnvInt("DOCVAULT_KEY_SUBMISSIONS_PER_HOUR", c.RateLimit.KeySubmissionsPerHour)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("%s is required", EnvDatabaseURL)
	}
	switch c.Storage.Type {
	case storage.BackendNone:
	case storage.BackendFilesystem:
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case storage.BackendS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be none, filesystem or s3)", c.Storage.Type)
	}

	// A malformed key must stop startup.
	if _, err := secrets.NewCipher(c.Security.EncryptionKey); err != nil {
		return err
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("%s must be at least 32 bytes", EnvJWTSecret)
	}

	switch c.Audit.Sink {
	case "db", "log", "both":
	default:
		return fmt.Errorf("invalid audit sink: %s (must be db, log or both)", c.Audit.Sink)
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit retention days cannot be negative")
	}

	if c.Policy.URL != "" && c.Policy.Token == "" {
		return fmt.Errorf("DOCVAULT_PDP_TOKEN is required when DOCVAULT_PDP_URL is set")
	}

	if c.Observability.OTel.Enabled {
		if c.Observability.OTel.Endpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTel.ServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// fileConfig is the YAML layout. Secrets have no place here.
type fileConfig struct {
	Server struct {
		Host            string        `yaml:"host"`
		Port            string        `yaml:"port"`
		HealthPort      string        `yaml:"health_port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		TrustProxy      *bool         `yaml:"trust_proxy"`
	} `yaml:"server"`
	Database struct {
		MaxConns int `yaml:"max_conns"`
		MinConns int `yaml:"min_conns"`
	} `yaml:"database"`
	Storage struct {
		Type           string `yaml:"type"`
		FilesystemRoot string `yaml:"filesystem_root"`
		S3Endpoint     string `yaml:"s3_endpoint"`
		S3Region       string `yaml:"s3_region"`
		S3Bucket       string `yaml:"s3_bucket"`
		S3UsePathStyle *bool  `yaml:"s3_use_path_style"`
		RedisURL       string `yaml:"redis_url"`
	} `yaml:"storage"`
	LogLevel string `yaml:"log_level"`
	OTel     struct {
		Enabled     *bool   `yaml:"enabled"`
		Endpoint    string  `yaml:"endpoint"`
		ServiceName string  `yaml:"service_name"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"otel"`
	Policy struct {
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout"`
		RetryMax *int          `yaml:"retry_max"`
	} `yaml:"policy"`
	Audit struct {
		Sink              string `yaml:"sink"`
		RetentionDays     int    `yaml:"retention_days"`
		RetentionSchedule string `yaml:"retention_schedule"`
	} `yaml:"audit"`
	Cache struct {
		ProfileSize int           `yaml:"profile_size"`
		ProfileTTL  time.Duration `yaml:"profile_ttl"`
	} `yaml:"cache"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var f fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Server.Host, f.Server.Host)
	setString(&c.Server.Port, f.Server.Port)
	setString(&c.Server.HealthPort, f.Server.HealthPort)
	setDuration(&c.Server.ReadTimeout, f.Server.ReadTimeout)
	setDuration(&c.Server.WriteTimeout, f.Server.WriteTimeout)
	setDuration(&c.Server.ShutdownTimeout, f.Server.ShutdownTimeout)
	setBool(&c.Server.TrustProxy, f.Server.TrustProxy)

	setInt(&c.Storage.PostgresMaxConns, f.Database.MaxConns)
	setInt(&c.Storage.PostgresMinConns, f.Database.MinConns)
	setString(&c.Storage.Type, f.Storage.Type)
	setString(&c.Storage.FilesystemRoot, f.Storage.FilesystemRoot)
	setString(&c.Storage.S3Endpoint, f.Storage.S3Endpoint)
	setString(&c.Storage.S3Region, f.Storage.S3Region)
	setString(&c.Storage.S3Bucket, f.Storage.S3Bucket)
	setBool(&c.Storage.S3UsePathStyle, f.Storage.S3UsePathStyle)
	setString(&c.Storage.RedisURL, f.Storage.RedisURL)

	if f.LogLevel != "" {
		c.Observability.LogLevel = observability.ParseLevel(f.LogLevel)
	}
	setBool(&c.Observability.OTel.Enabled, f.OTel.Enabled)
	setString(&c.Observability.OTel.Endpoint, f.OTel.Endpoint)
	setString(&c.Observability.OTel.ServiceName, f.OTel.ServiceName)
	if f.OTel.SampleRatio > 0 {
		c.Observability.OTel.SampleRatio = f.OTel.SampleRatio
	}

	setString(&c.Policy.URL, f.Policy.URL)
	setDuration(&c.Policy.Timeout, f.Policy.Timeout)
	if f.Policy.RetryMax != nil {
		c.Policy.RetryMax = *f.Policy.RetryMax
	}

	setString(&c.Audit.Sink, f.Audit.Sink)
	setInt(&c.Audit.RetentionDays, f.Audit.RetentionDays)
	setString(&c.Audit.RetentionSchedule, f.Audit.RetentionSchedule)

	setInt(&c.Cache.ProfileSize, f.Cache.ProfileSize)
	setDuration(&c.Cache.ProfileTTL, f.Cache.ProfileTTL)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
