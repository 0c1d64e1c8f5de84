package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Cache     CacheConfig     `yaml:"cache"`
	SoftBan   SoftBanConfig   `yaml:"soft_ban"`
	Files     FilesConfig     `yaml:"files"`
	DeepLink  DeepLinkConfig  `yaml:"deep_link"`
	Retention RetentionConfig `yaml:"retention"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ClientConfig holds settings for the remote API client.
type ClientConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// CacheConfig holds the local pebble cache settings.
type CacheConfig struct {
	DBPath string `yaml:"db_path"`
}

// SoftBanConfig controls the report-driven moderation guard.
type SoftBanConfig struct {
	ReportsThreshold int      `yaml:"reports_threshold"`
	Window           Duration `yaml:"window"`
	Duration         Duration `yaml:"duration"`
}

// FilesConfig holds upload quotas enforced by the file guards.
type FilesConfig struct {
	MaxFileSize       SizeBytes `yaml:"max_file_size"`
	MaxFilesPerMeetup int       `yaml:"max_files_per_meetup"`
	MaxBytesPerMeetup SizeBytes `yaml:"max_bytes_per_meetup"`
}

// DeepLinkConfig holds the invite deep link scheme and web host.
type DeepLinkConfig struct {
	Scheme  string `yaml:"scheme"`
	WebHost string `yaml:"web_host"`
}

// RetentionConfig holds configuration for the cache prune runner.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Days    int    `yaml:"days"`
	DryRun  bool   `yaml:"dry_run"`
}

// ServerConfig holds dev backend server settings.
type ServerConfig struct {
	Address   string          `yaml:"address"`
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is the per-client token bucket applied by the backend.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Addr returns the listen address for the dev backend.
func (c *Config) Addr() string {
	addr := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8000
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "10MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "10m" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
