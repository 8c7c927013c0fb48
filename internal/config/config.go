package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source names
const (
	SourceLive   = "live"
	SourceStatic = "static"
)

// Config holds application configuration
type Config struct {
	// Now-playing implementation: "live" or "static"
	Source string

	NowPlaying NowPlayingConfig
	Lookup     LookupConfig
	Push       PushConfig
	Server     ServerConfig

	// Timeout for each upstream HTTP request
	HTTPTimeout time.Duration

	// Keep only the first included resource per {type, id}
	DedupeIncluded bool

	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Name}}"
	OutputFormat string

	// Pad or truncate now output to this many columns (0 disables)
	OutputWidth int
}

// NowPlayingConfig holds TuneGenie feed settings
type NowPlayingConfig struct {
	URL   string
	Brand string
	APIID string
	Count int
}

// LookupConfig holds iTunes lookup settings
type LookupConfig struct {
	URL     string
	Country string

	// SQLite cache path; empty disables the cache, ":memory:" keeps it in process
	CachePath string
	CacheTTL  time.Duration
}

// PushConfig holds push connection settings
type PushConfig struct {
	URL        string
	Enabled    bool
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
	MaxRetries uint64 // 0 retries forever
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
	RateLimit   int // Requests per minute per IP, 0 disables
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return load(getConfigDir(), ".")
}

// load reads config.yaml from the first of paths that has one
func load(paths ...string) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Read from environment variables, e.g. ONAIR_PUSH_ENABLED
	v.SetEnvPrefix("ONAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		Source: v.GetString("source"),
		NowPlaying: NowPlayingConfig{
			URL:   v.GetString("nowplaying.url"),
			Brand: v.GetString("nowplaying.brand"),
			APIID: v.GetString("nowplaying.api_id"),
			Count: v.GetInt("nowplaying.count"),
		},
		Lookup: LookupConfig{
			URL:       v.GetString("lookup.url"),
			Country:   v.GetString("lookup.country"),
			CachePath: v.GetString("lookup.cache_path"),
			CacheTTL:  v.GetDuration("lookup.cache_ttl"),
		},
		Push: PushConfig{
			URL:        v.GetString("push.url"),
			Enabled:    v.GetBool("push.enabled"),
			BaseDelay:  v.GetDuration("push.base_delay"),
			MaxDelay:   v.GetDuration("push.max_delay"),
			Jitter:     v.GetFloat64("push.jitter"),
			MaxRetries: v.GetUint64("push.max_retries"),
		},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
			RateLimit:   v.GetInt("server.rate_limit"),
		},
		HTTPTimeout:    v.GetDuration("http.timeout"),
		DedupeIncluded: v.GetBool("dedupe_included"),
		OutputFormat:   v.GetString("output_format"),
		OutputWidth:    v.GetInt("output_width"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source", SourceLive)
	v.SetDefault("nowplaying.url", "http://api.tunegenie.com/v1/brand/nowplaying/")
	v.SetDefault("nowplaying.brand", "kndd")
	v.SetDefault("nowplaying.api_id", "entercom")
	v.SetDefault("nowplaying.count", 10)
	v.SetDefault("lookup.url", "https://itunes.apple.com/lookup")
	v.SetDefault("lookup.country", "us")
	v.SetDefault("lookup.cache_path", "")
	v.SetDefault("lookup.cache_ttl", 24*time.Hour)
	v.SetDefault("push.url", "wss://pusherw.tunegenie.com/ws/kndd")
	v.SetDefault("push.enabled", true)
	v.SetDefault("push.base_delay", time.Second)
	v.SetDefault("push.max_delay", 30*time.Second)
	v.SetDefault("push.jitter", 0.5)
	v.SetDefault("push.max_retries", 0)
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("server.addr", "127.0.0.1:4200")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("dedupe_included", false)
	v.SetDefault("output_format", "{{.Artist}} - {{.Name}}")
	v.SetDefault("output_width", 0)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.Source {
	case SourceLive, SourceStatic:
	default:
		return fmt.Errorf("unknown source %q (want %q or %q)", c.Source, SourceLive, SourceStatic)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.NowPlaying.Count <= 0 {
		return fmt.Errorf("nowplaying.count must be positive, got %d", c.NowPlaying.Count)
	}
	if c.Lookup.CachePath != "" && c.Lookup.CacheTTL <= 0 {
		return fmt.Errorf("lookup.cache_ttl must be positive, got %s", c.Lookup.CacheTTL)
	}

	if c.Push.Enabled {
		if c.Push.BaseDelay <= 0 {
			return fmt.Errorf("push.base_delay must be positive, got %s", c.Push.BaseDelay)
		}
		if c.Push.MaxDelay < c.Push.BaseDelay {
			return fmt.Errorf("push.max_delay (%s) must not be less than push.base_delay (%s)", c.Push.MaxDelay, c.Push.BaseDelay)
		}
		if c.Push.Jitter < 0 || c.Push.Jitter > 1 {
			return fmt.Errorf("push.jitter must be within [0, 1], got %v", c.Push.Jitter)
		}
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %d", c.Server.RateLimit)
	}

	return nil
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "onair")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}
