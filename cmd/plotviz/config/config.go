// Package config implements the plotviz service config.
//
// Every option can be set by flag or environment variable; flags take
// precedence, then the environment, then the defaults below.
package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
)

// Config holds all plotviz configuration.
type Config struct {
	// Storage
	Dir         string
	BlobBackend string
	RedisAddr   string
	RedisPass   string
	RedisDB     int

	// Server
	Host             string
	Port             int
	GRPCHealthListen string
	RateLimit        float64
	RateBurst        int

	// Rendering
	MaxPoints int
	Width     int
	Height    int

	// Logging
	LogFormat string
	LogLevel  string
}

// Listen returns the HTTP listen address.
func (c *Config) Listen() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Exits with status 1 if a value is out of range.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Dir, "dir", getEnv("PLOT_SERVICE_DIR", "plots"), "Directory for stored plot images")
	flag.StringVar(&cfg.BlobBackend, "blob-backend", getEnv("BLOB_BACKEND", "disk"), "Blob backend: disk or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address (redis backend)")
	flag.StringVar(&cfg.RedisPass, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password (redis backend)")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number (redis backend)")

	flag.StringVar(&cfg.Host, "host", getEnv("PLOT_SERVICE_HOST", "0.0.0.0"), "HTTP bind host")
	flag.IntVar(&cfg.Port, "port", getEnvInt("PLOT_SERVICE_PORT", 5006), "HTTP bind port")
	flag.StringVar(&cfg.GRPCHealthListen, "grpc-health-listen", getEnv("GRPC_HEALTH_LISTEN", ""), "gRPC health probe address (empty disables)")
	flag.Float64Var(&cfg.RateLimit, "rate-limit", getEnvFloat("PLOT_RATE_LIMIT", 0), "Plot creations per second (0 disables limiting)")
	flag.IntVar(&cfg.RateBurst, "rate-burst", getEnvInt("PLOT_RATE_BURST", 20), "Burst size for plot creations")

	flag.IntVar(&cfg.MaxPoints, "max-points", getEnvInt("PLOT_MAX_POINTS", 5000), "Maximum points per plot")
	flag.IntVar(&cfg.Width, "width", getEnvInt("PLOT_WIDTH", 720), "Plot width in pixels")
	flag.IntVar(&cfg.Height, "height", getEnvInt("PLOT_HEIGHT", 480), "Plot height in pixels")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	return cfg
}

// Validate reports the first invalid option.
func (c *Config) Validate() error {
	if c.Dir == "" && c.BlobBackend == "disk" {
		return fmt.Errorf("--dir is required for the disk backend")
	}
	if c.BlobBackend != "disk" && c.BlobBackend != "redis" {
		return fmt.Errorf("--blob-backend must be disk or redis, got %q", c.BlobBackend)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("--port must be between 0 and 65535, got %d", c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("--rate-limit must not be negative, got %g", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("--rate-burst must be positive when rate limiting, got %d", c.RateBurst)
	}
	if c.MaxPoints <= 0 {
		return fmt.Errorf("--max-points must be positive, got %d", c.MaxPoints)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("--width and --height must be positive, got %dx%d", c.Width, c.Height)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
