package config

import (
	"flag"
	"os"
	"strings"
	"testing"
)

func resetFlags(args ...string) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = append([]string{"cmd"}, args...)
}

func TestConfig_Defaults(t *testing.T) {
	resetFlags()

	cfg := ParseFlags()

	if cfg.Dir != "plots" {
		t.Errorf("Dir = %q, want %q", cfg.Dir, "plots")
	}
	if cfg.BlobBackend != "disk" {
		t.Errorf("BlobBackend = %q, want disk", cfg.BlobBackend)
	}
	if cfg.Listen() != "0.0.0.0:5006" {
		t.Errorf("Listen() = %q, want %q", cfg.Listen(), "0.0.0.0:5006")
	}
	if cfg.MaxPoints != 5000 {
		t.Errorf("MaxPoints = %d, want 5000", cfg.MaxPoints)
	}
	if cfg.Width != 720 || cfg.Height != 480 {
		t.Errorf("size = %dx%d, want 720x480", cfg.Width, cfg.Height)
	}
	if cfg.GRPCHealthListen != "" {
		t.Errorf("GRPCHealthListen = %q, want empty", cfg.GRPCHealthListen)
	}
	if cfg.LogFormat != "text" || cfg.LogLevel != "info" {
		t.Errorf("logging = %s/%s, want text/info", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.RateLimit != 0 || cfg.RateBurst != 20 {
		t.Errorf("rate limit = %g burst %d, want 0 burst 20", cfg.RateLimit, cfg.RateBurst)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PLOT_SERVICE_DIR", "/var/lib/plots")
	t.Setenv("PLOT_SERVICE_PORT", "8080")
	t.Setenv("PLOT_MAX_POINTS", "100")
	t.Setenv("BLOB_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PLOT_RATE_LIMIT", "2.5")
	resetFlags()

	cfg := ParseFlags()

	if cfg.Dir != "/var/lib/plots" {
		t.Errorf("Dir = %q", cfg.Dir)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.MaxPoints != 100 {
		t.Errorf("MaxPoints = %d, want 100", cfg.MaxPoints)
	}
	if cfg.BlobBackend != "redis" || cfg.RedisDB != 3 {
		t.Errorf("redis = %s db %d", cfg.BlobBackend, cfg.RedisDB)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %g, want 2.5", cfg.RateLimit)
	}
}

func TestConfig_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("PLOT_SERVICE_PORT", "8080")
	resetFlags("-port=9090", "-host=127.0.0.1", "-log-format=json", "-grpc-health-listen=:50051")

	cfg := ParseFlags()

	if cfg.Listen() != "127.0.0.1:9090" {
		t.Errorf("Listen() = %q, want 127.0.0.1:9090", cfg.Listen())
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	if cfg.GRPCHealthListen != ":50051" {
		t.Errorf("GRPCHealthListen = %q", cfg.GRPCHealthListen)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Dir: "plots", BlobBackend: "disk", Port: 5006, MaxPoints: 5000, Width: 720, Height: 480}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"redis without dir", func(c *Config) { c.BlobBackend = "redis"; c.Dir = "" }, ""},
		{"disk without dir", func(c *Config) { c.Dir = "" }, "--dir"},
		{"unknown backend", func(c *Config) { c.BlobBackend = "s3" }, "--blob-backend"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "--port"},
		{"zero max points", func(c *Config) { c.MaxPoints = 0 }, "--max-points"},
		{"zero width", func(c *Config) { c.Width = 0 }, "--width"},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, "--rate-limit"},
		{"rate without burst", func(c *Config) { c.RateLimit = 5; c.RateBurst = 0 }, "--rate-burst"},
		{"rate with burst", func(c *Config) { c.RateLimit = 5; c.RateBurst = 10 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"valid integer", "42", 10, 42},
		{"invalid integer", "not-a-number", 10, 10},
		{"not set", "", 99, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("PLOTVIZ_TEST_INT", tt.envValue)
			}
			if got := getEnvInt("PLOTVIZ_TEST_INT", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("PLOTVIZ_TEST_FLOAT", "0.5")
	if got := getEnvFloat("PLOTVIZ_TEST_FLOAT", 1); got != 0.5 {
		t.Errorf("getEnvFloat() = %g, want 0.5", got)
	}

	t.Setenv("PLOTVIZ_TEST_FLOAT", "fast")
	if got := getEnvFloat("PLOTVIZ_TEST_FLOAT", 1); got != 1 {
		t.Errorf("getEnvFloat(invalid) = %g, want default 1", got)
	}
}
