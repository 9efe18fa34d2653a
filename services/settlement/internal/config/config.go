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

// ConfigPath is the default config file; SETTLEMENT_CONFIG overrides it.
var ConfigPath = configPathFromEnv()

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	RedisAddr        string `yaml:"redisAddr"`
	RedisPassword    string `yaml:"redisPassword"`
	SettlementStream string `yaml:"settlementStream"`
	QueueGroup       string `yaml:"queueGroup"`
	QueueConcurrency int    `yaml:"queueConcurrency"`
	QueueMaxRetries  int    `yaml:"queueMaxRetries"`
	QueueRetryDelay  string `yaml:"queueRetryDelay"`

	MarketplaceURL            string `yaml:"marketplaceURL"`
	InternalJWTKeyID          string `yaml:"internalJWTKeyID"`
	InternalJWTPrivateKeyPath string `yaml:"internalJWTPrivateKeyPath"`

	// ConfirmDelay is how long the simulated customer takes to approve an
	// STK push or PayPal order before the worker verifies it.
	ConfirmDelay string `yaml:"confirmDelay"`
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
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setString("MARKETPLACE_URL", &cfg.MarketplaceURL)
	setString("INTERNAL_JWT_PRIVATE_KEY_PATH", &cfg.InternalJWTPrivateKeyPath)
	setString("SETTLEMENT_CONFIRM_DELAY", &cfg.ConfirmDelay)
	if v := strings.TrimSpace(os.Getenv("SETTLEMENT_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SETTLEMENT_CONCURRENCY must be an integer: %w", err)
		}
		cfg.QueueConcurrency = n
	}
	return nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.SettlementStream == "" {
		cfg.SettlementStream = "elearn:settlement"
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "settlement"
	}
	if cfg.QueueConcurrency <= 0 {
		cfg.QueueConcurrency = 2
	}
	if cfg.ConfirmDelay == "" {
		cfg.ConfirmDelay = "3s"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.MarketplaceURL == "" {
		return errors.New("config: marketplaceURL is required (set in config.yaml or MARKETPLACE_URL)")
	}
	if cfg.InternalJWTPrivateKeyPath == "" {
		return errors.New("config: internalJWTPrivateKeyPath is required (set in config.yaml or INTERNAL_JWT_PRIVATE_KEY_PATH)")
	}
	if cfg.QueueMaxRetries < 0 {
		return errors.New("config: queueMaxRetries must not be negative")
	}
	for name, raw := range map[string]string{"queueRetryDelay": cfg.QueueRetryDelay, "confirmDelay": cfg.ConfirmDelay} {
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
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

func configPathFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("SETTLEMENT_CONFIG")); v != "" {
		return v
	}
	return "config.yaml"
}
