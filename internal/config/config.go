package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix is the prefix of every environment override, e.g.
// ALMANAC_SERVER_PORT.
const envPrefix = "ALMANAC"

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Events    EventsConfig    `yaml:"events" envconfig:"EVENTS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST"`
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains per-client request throttling settings.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
	Dir    string `yaml:"dir" envconfig:"DIR"`
	ToFile bool   `yaml:"to_file" envconfig:"TO_FILE"`
}

// DatabaseConfig contains the PostgreSQL settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT"`
	Name     string `yaml:"name" envconfig:"NAME"`
	User     string `yaml:"user" envconfig:"USER"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"SSL_MODE"`
	MinConns int    `yaml:"min_conns" envconfig:"MIN_CONNS"`
	MaxConns int    `yaml:"max_conns" envconfig:"MAX_CONNS"`
}

// CacheConfig selects and tunes the result cache backend.
type CacheConfig struct {
	Backend    string        `yaml:"backend" envconfig:"BACKEND"`
	TTL        time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxEntries int           `yaml:"max_entries" envconfig:"MAX_ENTRIES"`
	Redis      RedisConfig   `yaml:"redis" envconfig:"REDIS"`
}

// RedisConfig contains the Redis cache backend settings.
type RedisConfig struct {
	Address  string `yaml:"address" envconfig:"ADDRESS"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
	PoolSize int    `yaml:"pool_size" envconfig:"POOL_SIZE"`
}

// DataConfig contains data directory and statistics defaults.
type DataConfig struct {
	Dir            string  `yaml:"dir" envconfig:"DIR"`
	DefaultTrimPct float64 `yaml:"default_trim_pct" envconfig:"DEFAULT_TRIM_PCT"`
}

// EventsConfig controls the economic-event calendar overlay.
type EventsConfig struct {
	OverlayFile string `yaml:"overlay_file" envconfig:"OVERLAY_FILE"`
	Watch       bool   `yaml:"watch" envconfig:"WATCH"`
}

// WebSocketConfig contains WebSocket hub settings.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	SendBuffer      int           `yaml:"send_buffer" envconfig:"SEND_BUFFER"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8072,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Dir:    "logs",
			ToFile: true,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "almanac",
			User:     "almanac",
			SSLMode:  "disable",
			MinConns: 2,
			MaxConns: 10,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        time.Hour,
			MaxEntries: 4096,
			Redis: RedisConfig{
				Address:  "127.0.0.1:6379",
				PoolSize: 10,
			},
		},
		Data: DataConfig{
			Dir:            "data",
			DefaultTrimPct: 5.0,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendBuffer:      64,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}

// Load builds the configuration: defaults first, then the YAML file at
// path (when path is empty a config.yaml in the working directory is
// picked up if present), then environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", c.Logging.Format)
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("database max_conns (%d) below min_conns (%d)",
			c.Database.MaxConns, c.Database.MinConns)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache backend: %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Address == "" {
		return fmt.Errorf("redis backend selected without an address")
	}

	if c.Data.DefaultTrimPct < 0 || c.Data.DefaultTrimPct > 25 {
		return fmt.Errorf("default trim percent %.1f outside [0, 25]", c.Data.DefaultTrimPct)
	}

	if c.WebSocket.ReadBufferSize <= 0 || c.WebSocket.WriteBufferSize <= 0 {
		return fmt.Errorf("websocket buffer sizes must be positive")
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket ping period must be below pong wait")
	}
	return nil
}
