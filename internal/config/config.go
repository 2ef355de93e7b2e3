// Package config loads server and client settings from defaults, an
// optional YAML file, and SMARTGROCERY_* environment variables, in that
// order.
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

const envPrefix = "SMARTGROCERY_"

type Config struct {
	Port      string `yaml:"port"`
	DBPath    string `yaml:"db_path"`
	BaseURL   string `yaml:"base_url"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text or json
	Dev       bool   `yaml:"dev"`

	Auth          AuthConfig          `yaml:"auth"`
	Email         EmailConfig         `yaml:"email"`
	OpenFoodFacts OpenFoodFactsConfig `yaml:"openfoodfacts"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	RateLimit  int           `yaml:"rate_limit"` // auth requests per IP per minute
}

type EmailConfig struct {
	PostmarkToken string `yaml:"postmark_token"`
	From          string `yaml:"from"`
	APIURL        string `yaml:"api_url"`
}

type OpenFoodFactsConfig struct {
	BaseURL   string        `yaml:"base_url"`
	PageSize  int           `yaml:"page_size"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type WebSocketConfig struct {
	OriginPatterns []string `yaml:"origin_patterns"`
}

func Default() Config {
	return Config{
		Port:      "8080",
		DBPath:    "smartgrocery.db",
		BaseURL:   "http://localhost:8080",
		LogLevel:  "info",
		LogFormat: "text",
		Auth: AuthConfig{
			SessionTTL: 30 * 24 * time.Hour,
			RateLimit:  10,
		},
		Email: EmailConfig{
			From:   "noreply@smartgrocery.app",
			APIURL: "https://api.postmarkapp.com/email",
		},
		OpenFoodFacts: OpenFoodFactsConfig{
			BaseURL:   "https://world.openfoodfacts.net/api/v2/",
			PageSize:  10,
			UserAgent: "SmartGrocery/1.0",
			Timeout:   10 * time.Second,
		},
	}
}

// Load reads path when non-empty, applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("BASE_URL", &c.BaseURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("POSTMARK_TOKEN", &c.Email.PostmarkToken)
	str("EMAIL_FROM", &c.Email.From)
	str("EMAIL_API_URL", &c.Email.APIURL)
	str("OFF_BASE_URL", &c.OpenFoodFacts.BaseURL)
	str("OFF_USER_AGENT", &c.OpenFoodFacts.UserAgent)

	if v, ok := lookup(envPrefix + "DEV"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEV: %w", envPrefix, err)
		}
		c.Dev = b
	}
	if v, ok := lookup(envPrefix + "SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSESSION_TTL: %w", envPrefix, err)
		}
		c.Auth.SessionTTL = d
	}
	if v, ok := lookup(envPrefix + "OFF_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sOFF_TIMEOUT: %w", envPrefix, err)
		}
		c.OpenFoodFacts.Timeout = d
	}
	if v, ok := lookup(envPrefix + "OFF_PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sOFF_PAGE_SIZE: %w", envPrefix, err)
		}
		c.OpenFoodFacts.PageSize = n
	}
	if v, ok := lookup(envPrefix + "AUTH_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sAUTH_RATE_LIMIT: %w", envPrefix, err)
		}
		c.Auth.RateLimit = n
	}
	if v, ok := lookup(envPrefix + "WS_ORIGINS"); ok && v != "" {
		c.WebSocket.OriginPatterns = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl must be positive"))
	}
	if c.Auth.RateLimit <= 0 {
		errs = append(errs, errors.New("auth.rate_limit must be positive"))
	}
	if c.OpenFoodFacts.PageSize <= 0 {
		errs = append(errs, errors.New("openfoodfacts.page_size must be positive"))
	}
	if c.OpenFoodFacts.Timeout <= 0 {
		errs = append(errs, errors.New("openfoodfacts.timeout must be positive"))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	return errors.Join(errs...)
}
