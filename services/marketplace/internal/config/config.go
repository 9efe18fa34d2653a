package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file; ELEARN_CONFIG overrides it.
var ConfigPath = configPathFromEnv()

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreGorm   = "gorm"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	StoreBackend   string `yaml:"storeBackend"`
	DatabaseURL    string `yaml:"databaseURL"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisKeyPrefix string `yaml:"redisKeyPrefix"`

	MinioEndpoint     string `yaml:"minioEndpoint"`
	MinioAccessKey    string `yaml:"minioAccessKey"`
	MinioSecretKey    string `yaml:"minioSecretKey"`
	MinioBucket       string `yaml:"minioBucket"`
	MinioUseSSL       bool   `yaml:"minioUseSSL"`
	MediaBaseURL      string `yaml:"mediaBaseURL"`
	ThumbnailMaxBytes int64  `yaml:"thumbnailMaxBytes"`
	ThumbnailURLTTL   string `yaml:"thumbnailURLTTL"`

	AdminEmail        string `yaml:"adminEmail"`
	AdminPasswordHash string `yaml:"adminPasswordHash"`
	JWTSecret         string `yaml:"jwtSecret"`
	JWTIssuer         string `yaml:"jwtIssuer"`
	JWTAudience       string `yaml:"jwtAudience"`
	SessionTTL        string `yaml:"sessionTTL"`

	InternalJWTKeyID         string `yaml:"internalJWTKeyID"`
	InternalJWTPublicKeyPath string `yaml:"internalJWTPublicKeyPath"`

	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
	TrustedProxies     []string `yaml:"trustedProxies"`
	CheckoutRateLimit  int      `yaml:"checkoutRateLimit"`
	CheckoutRateWindow string   `yaml:"checkoutRateWindow"`

	// Gateway delays in milliseconds; nil keeps the simulated defaults.
	MpesaDelayMs  *int `yaml:"mpesaDelayMs"`
	CardDelayMs   *int `yaml:"cardDelayMs"`
	PayPalDelayMs *int `yaml:"paypalDelayMs"`

	SettlementStream string `yaml:"settlementStream"`
}

// Load reads config from path (defaults to ConfigPath) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	setString := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	setString("PORT", &cfg.Port)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("STORE_BACKEND", &cfg.StoreBackend)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setString("MINIO_ENDPOINT", &cfg.MinioEndpoint)
	setString("MINIO_ACCESS_KEY", &cfg.MinioAccessKey)
	setString("MINIO_SECRET_KEY", &cfg.MinioSecretKey)
	setString("MINIO_BUCKET", &cfg.MinioBucket)
	setString("ADMIN_EMAIL", &cfg.AdminEmail)
	setString("ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	setString("ADMIN_JWT_SECRET", &cfg.JWTSecret)
	setString("INTERNAL_JWT_PUBLIC_KEY_PATH", &cfg.InternalJWTPublicKeyPath)
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitCSV(v)
	}
	for env, dst := range map[string]**int{
		"PAYMENT_MPESA_DELAY_MS":  &cfg.MpesaDelayMs,
		"PAYMENT_CARD_DELAY_MS":   &cfg.CardDelayMs,
		"PAYMENT_PAYPAL_DELAY_MS": &cfg.PayPalDelayMs,
	} {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s must be an integer: %w", env, err)
		}
		*dst = &n
	}
	return nil
}

func applyDefaults(cfg *FileConfig) {
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreMemory
	}
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "elearn"
	}
	if cfg.ThumbnailMaxBytes <= 0 {
		cfg.ThumbnailMaxBytes = 5 << 20
	}
	if cfg.SettlementStream == "" {
		cfg.SettlementStream = "elearn:settlement"
	}
	if cfg.CheckoutRateWindow == "" {
		cfg.CheckoutRateWindow = "1m"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required for the redis store backend")
		}
	case StoreGorm:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the gorm store backend")
		}
	default:
		return fmt.Errorf("config: unknown storeBackend %q", cfg.StoreBackend)
	}
	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		return errors.New("config: adminEmail and adminPasswordHash are required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("config: jwtSecret must be at least 32 bytes (set in config.yaml or ADMIN_JWT_SECRET)")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "") {
		return errors.New("config: minioAccessKey, minioSecretKey and minioBucket are required with minioEndpoint")
	}
	if cfg.CheckoutRateLimit < 0 {
		return errors.New("config: checkoutRateLimit must not be negative")
	}
	for name, raw := range map[string]string{
		"sessionTTL":         cfg.SessionTTL,
		"thumbnailURLTTL":    cfg.ThumbnailURLTTL,
		"checkoutRateWindow": cfg.CheckoutRateWindow,
	} {
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	for name, v := range map[string]*int{"mpesaDelayMs": cfg.MpesaDelayMs, "cardDelayMs": cfg.CardDelayMs, "paypalDelayMs": cfg.PayPalDelayMs} {
		if v != nil && *v < 0 {
			return fmt.Errorf("config: %s must not be negative", name)
		}
	}
	return nil
}

// ParseDuration accepts Go duration strings; empty means zero.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", raw)
	}
	return d, nil
}

// DelayOr converts a millisecond override into a duration.
func DelayOr(ms *int, def time.Duration) time.Duration {
	if ms == nil {
		return def
	}
	return time.Duration(*ms) * time.Millisecond
}

func configPathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("ELEARN_CONFIG")); v != "" {
		return v
	}
	return "config.yaml"
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
