package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Site      SiteConfig      `toml:"site"`
	Relation  RelationConfig  `toml:"relation"`
	Scraping  ScrapingConfig  `toml:"scraping"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Migration MigrationConfig `toml:"migration"`
	Server    ServerConfig    `toml:"server"`
	WebSocket WebSocketConfig `toml:"websocket"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
}

// SiteConfig describes the remote site and the session used against it
type SiteConfig struct {
	BaseURL        string   `toml:"base_url" validate:"required,url"`
	Cookie         string   `toml:"cookie"`     // raw Cookie header of a logged-in session
	UserAgent      string   `toml:"user_agent"` // sent on every request
	RequestTimeout Duration `toml:"request_timeout" validate:"gt=0"`
}

// RelationConfig controls relation calls and throttle handling
type RelationConfig struct {
	MaxAttempts     int      `toml:"max_attempts" validate:"min=1"`
	Cooldown        Duration `toml:"cooldown" validate:"gt=0"`          // used when the server gives no Retry-After
	RequestInterval Duration `toml:"request_interval" validate:"gte=0"` // minimum gap between relation calls, 0 disables pacing
	EnableMute      bool     `toml:"enable_mute"`                       // mute instead of block
	EnableTitleBan  bool     `toml:"enable_title_ban"`                  // also block the target's titles
}

// ScrapingConfig controls target resolution
type ScrapingConfig struct {
	PageInterval           Duration `toml:"page_interval" validate:"gte=0"`
	EnableNoviceFavoriters bool     `toml:"enable_novice_favoriters"`
	MaxPages               int      `toml:"max_pages" validate:"min=1"` // safety bound per resolve call
}

// AnalysisConfig toggles the pre-execution analysis passes
type AnalysisConfig struct {
	Enabled             bool `toml:"enabled"`
	ProtectFollowed     bool `toml:"protect_followed"`
	OnlyRequiredActions bool `toml:"only_required_actions"`
}

// MigrationConfig controls migration batches
type MigrationConfig struct {
	PageSize   int      `toml:"page_size" validate:"min=1"`
	EntryPause Duration `toml:"entry_pause" validate:"gte=0"`
	BatchPause Duration `toml:"batch_pause" validate:"gte=0"`
	MaxBatches int      `toml:"max_batches" validate:"min=1"`
}

type ServerConfig struct {
	Port               int    `toml:"port" validate:"min=1,max=65535"`
	Host               string `toml:"host"`
	CancelOnDisconnect bool   `toml:"cancel_on_disconnect"` // losing the last progress subscriber cancels the active operation
}

// WebSocketConfig contains configuration for progress streaming
type WebSocketConfig struct {
	OngoingThrottle Duration `toml:"ongoing_throttle" validate:"gte=0"` // min interval between broadcast ongoing events
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:        "https://eksisozluk.com",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: Duration(30 * time.Second),
		},
		Relation: RelationConfig{
			MaxAttempts:     3,
			Cooldown:        Duration(62 * time.Second), // remote window is one minute
			RequestInterval: 0,
			EnableMute:      false,
			EnableTitleBan:  false,
		},
		Scraping: ScrapingConfig{
			PageInterval:           0,
			EnableNoviceFavoriters: true,
			MaxPages:               1000,
		},
		Analysis: AnalysisConfig{
			Enabled:             false,
			ProtectFollowed:     true,
			OnlyRequiredActions: true,
		},
		Migration: MigrationConfig{
			PageSize:   25, // relation-list page size
			EntryPause: Duration(500 * time.Millisecond),
			BatchPause: Duration(2 * time.Second),
			MaxBatches: 400,
		},
		Server: ServerConfig{
			Port:               8090,
			Host:               "localhost",
			CancelOnDisconnect: true,
		},
		WebSocket: WebSocketConfig{
			OngoingThrottle: Duration(250 * time.Millisecond),
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files. CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Site configuration
	if baseURL := os.Getenv("ENGEL_SITE_BASE_URL"); baseURL != "" {
		config.Site.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if cookie := os.Getenv("ENGEL_SITE_COOKIE"); cookie != "" {
		config.Site.Cookie = cookie
	}
	if userAgent := os.Getenv("ENGEL_SITE_USER_AGENT"); userAgent != "" {
		config.Site.UserAgent = userAgent
	}
	if timeout := os.Getenv("ENGEL_SITE_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Site.RequestTimeout = Duration(d)
		}
	}

	// Relation configuration
	if maxAttempts := os.Getenv("ENGEL_RELATION_MAX_ATTEMPTS"); maxAttempts != "" {
		if n, err := strconv.Atoi(maxAttempts); err == nil {
			config.Relation.MaxAttempts = n
		}
	}
	if cooldown := os.Getenv("ENGEL_RELATION_COOLDOWN"); cooldown != "" {
		if d, err := time.ParseDuration(cooldown); err == nil {
			config.Relation.Cooldown = Duration(d)
		}
	}
	if interval := os.Getenv("ENGEL_RELATION_REQUEST_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Relation.RequestInterval = Duration(d)
		}
	}
	if enableMute := os.Getenv("ENGEL_RELATION_ENABLE_MUTE"); enableMute != "" {
		if b, err := strconv.ParseBool(enableMute); err == nil {
			config.Relation.EnableMute = b
		}
	}
	if enableTitleBan := os.Getenv("ENGEL_RELATION_ENABLE_TITLE_BAN"); enableTitleBan != "" {
		if b, err := strconv.ParseBool(enableTitleBan); err == nil {
			config.Relation.EnableTitleBan = b
		}
	}

	// Scraping configuration
	if novice := os.Getenv("ENGEL_SCRAPING_ENABLE_NOVICE_FAVORITERS"); novice != "" {
		if b, err := strconv.ParseBool(novice); err == nil {
			config.Scraping.EnableNoviceFavoriters = b
		}
	}

	// Analysis configuration
	if enabled := os.Getenv("ENGEL_ANALYSIS_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Analysis.Enabled = b
		}
	}

	// Server configuration
	if port := os.Getenv("ENGEL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ENGEL_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("ENGEL_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("ENGEL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ENGEL_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

var configValidator = validator.New()

// Validate checks the struct constraints of the configuration
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Duration is a time.Duration written in TOML as a string such as "62s"
type Duration time.Duration

// UnmarshalText parses a Go duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in Go notation
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
