package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration. Values mirror the defaults
// the mobile client shipped with.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			BaseURL: "http://localhost:8000",
			Timeout: Duration(10 * time.Second),
		},
		Cache: CacheConfig{DBPath: "./.meetup-cache"},
		SoftBan: SoftBanConfig{
			ReportsThreshold: 3,
			Window:           Duration(10 * time.Minute),
			Duration:         Duration(24 * time.Hour),
		},
		Files: FilesConfig{
			MaxFileSize:       SizeBytes(10 * 1024 * 1024),
			MaxFilesPerMeetup: 25,
			MaxBytesPerMeetup: SizeBytes(100 * 1024 * 1024),
		},
		DeepLink: DeepLinkConfig{Scheme: "meetup", WebHost: "meetup.example.com"},
		Retention: RetentionConfig{
			Enabled: false,
			Cron:    "0 2 * * *",
			Days:    30,
		},
		Server: ServerConfig{
			Port:      8000,
			RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file, layers it over the defaults and then
// applies environment overrides. A missing file is not an error; the
// defaults plus environment are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv merges MEETUP_* environment overrides into cfg. Environment
// wins over file values so deployments can tweak a packaged config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MEETUP_API_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("MEETUP_DB_PATH"); v != "" {
		cfg.Cache.DBPath = v
	}
	if v := os.Getenv("MEETUP_ADDR"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MEETUP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("MEETUP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MEETUP_SOFTBAN_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SoftBan.ReportsThreshold = n
		}
	}
	if v := os.Getenv("MEETUP_SOFTBAN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SoftBan.Window = Duration(d)
		}
	}
	if v := os.Getenv("MEETUP_DEEPLINK_HOST"); v != "" {
		cfg.DeepLink.WebHost = v
	}
}
