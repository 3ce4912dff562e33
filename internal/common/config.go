package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment" yaml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server" yaml:"server"`
	Storage     StorageConfig   `toml:"storage" yaml:"storage"`
	Fetch       FetchConfig     `toml:"fetch" yaml:"fetch"`
	RateLimit   RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Extract     ExtractConfig   `toml:"extract" yaml:"extract"`
	Plugins     PluginConfig    `toml:"plugins" yaml:"plugins"`
	Scheduler   SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	API         APIConfig       `toml:"api" yaml:"api"`
	Logging     LoggingConfig   `toml:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
}

type StorageConfig struct {
	Badger   BadgerConfig `toml:"badger" yaml:"badger"`
	Captures string       `toml:"captures_dir" yaml:"captures_dir"` // directory for save_file output
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`
}

// FetchConfig controls the fetch pipeline: retries, caching, politeness and
// the headless browser used for rendering.
type FetchConfig struct {
	MaxRetries      int           `toml:"max_retries" yaml:"max_retries"`             // attempts per fetch (default 3)
	RetryDelay      time.Duration `toml:"retry_delay" yaml:"retry_delay"`             // fixed inter-attempt delay (default 2s)
	CacheEnabled    bool          `toml:"cache_enabled" yaml:"cache_enabled"`         // global content cache toggle
	CacheTTL        time.Duration `toml:"cache_expiry" yaml:"cache_expiry"`           // cached content lifetime (default 600s)
	DomainPerSecond float64       `toml:"domain_per_second" yaml:"domain_per_second"` // per-domain politeness rate (default 1.0)
	Browser         BrowserConfig `toml:"browser" yaml:"browser"`
}

// BrowserConfig configures the chromedp render collaborator.
type BrowserConfig struct {
	Headless          bool          `toml:"headless" yaml:"headless"`
	DisableGPU        bool          `toml:"disable_gpu" yaml:"disable_gpu"`
	NoSandbox         bool          `toml:"no_sandbox" yaml:"no_sandbox"`
	UserAgent         string        `toml:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `toml:"navigation_timeout" yaml:"navigation_timeout"`
	RenderWait        time.Duration `toml:"render_wait" yaml:"render_wait"` // time to let JavaScript settle
}

// RateLimitConfig controls the per-credential sliding-window limiter at the
// API boundary.
type RateLimitConfig struct {
	Enabled           bool `toml:"enabled" yaml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute" yaml:"requests_per_minute"`
}

// ExtractConfig controls the extraction engine.
type ExtractConfig struct {
	AllowedCSSProperties []string `toml:"allowed_css_properties" yaml:"allowed_css_properties"`
	KeywordCount         int      `toml:"keyword_count" yaml:"keyword_count"` // top-N keywords per capture
}

// PluginConfig controls loading of caller-supplied transformation plugins.
type PluginConfig struct {
	Dir        string `toml:"dir" yaml:"dir"`                 // containment root for plugin paths
	EntryPoint string `toml:"entry_point" yaml:"entry_point"` // whitelisted symbol name (default "ProcessData")
}

// SchedulerConfig controls the dispatch loop.
type SchedulerConfig struct {
	TickInterval      time.Duration `toml:"tick_interval" yaml:"tick_interval"`
	MaxConcurrentRuns int           `toml:"max_concurrent_runs" yaml:"max_concurrent_runs"`
	// Unattended makes persistence errors fatal to the process: in a
	// continuously-running deployment it is better to fail loud than to
	// silently drift out of sync with durable state.
	Unattended bool `toml:"unattended" yaml:"unattended"`
}

type APIConfig struct {
	Keys []string `toml:"keys" yaml:"keys"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Output []string `toml:"output" yaml:"output"` // "stdout", "file"
}

// DefaultAllowedCSSProperties is the baseline allow-list for property names
// inside inline declaration blocks embedded in selectors.
var DefaultAllowedCSSProperties = []string{
	"color", "font-size", "background-color", "margin", "padding",
	"text-align", "font-weight", "text-decoration", "font-family",
	"border", "border-radius", "width", "height", "display", "visibility",
	"opacity", "cursor", "list-style-type", "vertical-align",
}

// NewDefaultConfig returns configuration defaults used when no config file
// is present.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 5000,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/webdata",
			},
			Captures: "./data/captures",
		},
		Fetch: FetchConfig{
			MaxRetries:      3,
			RetryDelay:      2 * time.Second,
			CacheEnabled:    true,
			CacheTTL:        600 * time.Second,
			DomainPerSecond: 1.0,
			Browser: BrowserConfig{
				Headless:          true,
				DisableGPU:        true,
				NoSandbox:         true,
				UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
				NavigationTimeout: 60 * time.Second,
				RenderWait:        2 * time.Second,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 20,
		},
		Extract: ExtractConfig{
			AllowedCSSProperties: DefaultAllowedCSSProperties,
			KeywordCount:         10,
		},
		Plugins: PluginConfig{
			Dir:        "./plugins",
			EntryPoint: "ProcessData",
		},
		Scheduler: SchedulerConfig{
			TickInterval:      time.Second,
			MaxConcurrentRuns: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> environment variables. Later files
// override earlier files. Files ending in .yaml/.yml are parsed as YAML;
// everything else as TOML.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Environment variables take precedence over all config files.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WEBCRAWLER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("WEBCRAWLER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("WEBCRAWLER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("WEBCRAWLER_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("WEBCRAWLER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// API keys may come from the environment instead of config files so
	// they stay out of version control.
	for i := 1; i <= 3; i++ {
		if key := os.Getenv(fmt.Sprintf("WEBCRAWLER_API_KEY_%d", i)); key != "" {
			config.API.Keys = appendUnique(config.API.Keys, key)
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides. CLI flags have
// the highest priority.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
