package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "RECORDBASE_"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Render    RenderConfig    `yaml:"render"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path enables an additional size-capped log file.
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type AuthConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	// DevUser is the actor used when auth is disabled.
	DevUser string `yaml:"dev_user"`
}

type StorageConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	UseSSL    bool          `yaml:"use_ssl"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// Enabled reports whether attachment storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}

type RateLimitConfig struct {
	// RPS of 0 disables rate limiting.
	RPS       float64       `yaml:"rps"`
	Burst     int           `yaml:"burst"`
	RedisAddr string        `yaml:"redis_addr"`
	Window    time.Duration `yaml:"window"`
}

type RenderConfig struct {
	BaseURL          string `yaml:"base_url"`
	DateFormat       string `yaml:"date_format"`
	ApprovedLabel    string `yaml:"approved_label"`
	NotApprovedLabel string `yaml:"not_approved_label"`
	Timezone         string `yaml:"timezone"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "recordbase.db",
		},
		Log: LogConfig{
			Level:    "info",
			MaxBytes: 10 << 20,
		},
		Auth: AuthConfig{
			Issuer:   "recordbase",
			TokenTTL: 24 * time.Hour,
			DevUser:  "dev",
		},
		Storage: StorageConfig{
			Bucket:    "recordbase",
			URLExpiry: 15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Burst:  10,
			Window: time.Second,
		},
		Render: RenderConfig{
			ApprovedLabel:    "Approved",
			NotApprovedLabel: "Pending approval",
		},
	}
}

// Load reads a .env file when present, then an optional YAML file, then
// RECORDBASE_* environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be repaired with defaults.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth enabled without a secret")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("invalid rate limit rps %v", c.RateLimit.RPS)
	}
	if c.Render.Timezone != "" {
		if _, err := time.LoadLocation(c.Render.Timezone); err != nil {
			return fmt.Errorf("invalid render timezone: %w", err)
		}
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	vars := map[string]func(string) error{
		"SERVER_HOST":         setString(&cfg.Server.Host),
		"SERVER_PORT":         setInt(&cfg.Server.Port),
		"TRANSPORT_MODE":      setString(&cfg.Transport.Mode),
		"DB_PATH":             setString(&cfg.DB.Path),
		"LOG_LEVEL":           setString(&cfg.Log.Level),
		"LOG_PATH":            setString(&cfg.Log.Path),
		"AUTH_ENABLED":        setBool(&cfg.Auth.Enabled),
		"AUTH_SECRET":         setString(&cfg.Auth.Secret),
		"AUTH_ISSUER":         setString(&cfg.Auth.Issuer),
		"AUTH_TOKEN_TTL":      setDuration(&cfg.Auth.TokenTTL),
		"AUTH_DEV_USER":       setString(&cfg.Auth.DevUser),
		"STORAGE_ENDPOINT":    setString(&cfg.Storage.Endpoint),
		"STORAGE_ACCESS_KEY":  setString(&cfg.Storage.AccessKey),
		"STORAGE_SECRET_KEY":  setString(&cfg.Storage.SecretKey),
		"STORAGE_BUCKET":      setString(&cfg.Storage.Bucket),
		"STORAGE_REGION":      setString(&cfg.Storage.Region),
		"STORAGE_USE_SSL":     setBool(&cfg.Storage.UseSSL),
		"STORAGE_URL_EXPIRY":  setDuration(&cfg.Storage.URLExpiry),
		"RATE_LIMIT_RPS":      setFloat(&cfg.RateLimit.RPS),
		"RATE_LIMIT_BURST":    setInt(&cfg.RateLimit.Burst),
		"RATE_LIMIT_REDIS":    setString(&cfg.RateLimit.RedisAddr),
		"RATE_LIMIT_WINDOW":   setDuration(&cfg.RateLimit.Window),
		"RENDER_BASE_URL":     setString(&cfg.Render.BaseURL),
		"RENDER_DATE_FORMAT":  setString(&cfg.Render.DateFormat),
		"RENDER_TIMEZONE":     setString(&cfg.Render.Timezone),
		"RENDER_APPROVED":     setString(&cfg.Render.ApprovedLabel),
		"RENDER_NOT_APPROVED": setString(&cfg.Render.NotApprovedLabel),
	}
	for name, apply := range vars {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		if err := apply(v); err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
