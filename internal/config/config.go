// Package config loads console and API double settings: defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/and161185/admin-console/internal/model"
)

// Session backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	API struct {
		URL         string        `yaml:"url"`
		Timeout     time.Duration `yaml:"timeout"`
		SuccessCode string        `yaml:"successCode"`
	} `yaml:"api"`

	Session struct {
		Backend     string        `yaml:"backend"`
		Path        string        `yaml:"path"`
		DSN         string        `yaml:"dsn"`
		RedisAddr   string        `yaml:"redisAddr"`
		RedisPrefix string        `yaml:"redisPrefix"`
		FallbackTTL time.Duration `yaml:"fallbackTTL"`
	} `yaml:"session"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Default returns the built-in settings.
func Default() *Config {
	var c Config
	c.API.URL = "http://127.0.0.1:8080"
	c.API.Timeout = 15 * time.Second
	c.API.SuccessCode = model.CodeSuccess
	c.Session.Backend = BackendFile
	c.Session.RedisPrefix = "admin-console:"
	c.Session.FallbackTTL = time.Hour
	c.Log.Level = "info"
	return &c
}

// Load builds and validates the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	c, err := Read(path)
	if err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// Read is Load without validation, for callers that apply further overrides.
func Read(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.API.URL = getenv("CONSOLE_API_URL", c.API.URL)
	c.API.Timeout = getenvDuration("CONSOLE_API_TIMEOUT", c.API.Timeout)
	c.API.SuccessCode = getenv("CONSOLE_SUCCESS_CODE", c.API.SuccessCode)
	c.Session.Backend = getenv("CONSOLE_SESSION_BACKEND", c.Session.Backend)
	c.Session.Path = getenv("CONSOLE_SESSION_PATH", c.Session.Path)
	c.Session.DSN = getenv("CONSOLE_SESSION_DSN", c.Session.DSN)
	c.Session.RedisAddr = getenv("CONSOLE_REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPrefix = getenv("CONSOLE_REDIS_PREFIX", c.Session.RedisPrefix)
	c.Session.FallbackTTL = getenvDuration("CONSOLE_SESSION_FALLBACK_TTL", c.Session.FallbackTTL)
	c.Log.Level = getenv("CONSOLE_LOG_LEVEL", c.Log.Level)
	c.Metrics.Addr = getenv("CONSOLE_METRICS_ADDR", c.Metrics.Addr)
	return c, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url %q: must be absolute http(s)", c.API.URL)
	}
	if c.API.SuccessCode == "" {
		return errors.New("api success code is empty")
	}
	switch c.Session.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.Session.DSN == "" {
			return errors.New("postgres session backend needs a dsn")
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return errors.New("redis session backend needs an address")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Logger builds a console logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = lvl
	zc.DisableStacktrace = true
	return zc.Build()
}

// DevAPI configures the local API double.
type DevAPI struct {
	Addr          string
	JWTSecret     string
	TokenTTL      time.Duration
	ReportTTL     bool
	MaxFailures   int
	BlockDuration time.Duration
}

// LoadDevAPI reads DEVAPI_* variables.
func LoadDevAPI() DevAPI {
	return DevAPI{
		Addr:          getenv("DEVAPI_ADDR", ":8080"),
		JWTSecret:     getenv("DEVAPI_JWT_SECRET", "dev-secret"),
		TokenTTL:      getenvDuration("DEVAPI_TOKEN_TTL", time.Hour),
		ReportTTL:     getenvBool("DEVAPI_REPORT_TTL", true),
		MaxFailures:   getenvInt("DEVAPI_MAX_FAILURES", 5),
		BlockDuration: getenvDuration("DEVAPI_BLOCK_DURATION", 15*time.Minute),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}
