package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Client.BaseURL != "http://localhost:8000" {
		t.Fatalf("base url: %s", cfg.Client.BaseURL)
	}
	if cfg.SoftBan.ReportsThreshold != 3 || cfg.SoftBan.Window.Duration() != 10*time.Minute {
		t.Fatalf("soft-ban defaults: %+v", cfg.SoftBan)
	}
	if cfg.Files.MaxFileSize.Int64() != 10*1024*1024 {
		t.Fatalf("max file size: %d", cfg.Files.MaxFileSize.Int64())
	}
	if cfg.Addr() != ":8000" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
client:
  base_url: "http://10.0.2.2:8000"
  timeout: 5s
soft_ban:
  reports_threshold: 5
  window: 15m
  duration: 48h
files:
  max_file_size: "20MB"
  max_bytes_per_meetup: 209715200
server:
  port: 9000
  rate_limit:
    rps: 2
    burst: 4
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.BaseURL != "http://10.0.2.2:8000" || cfg.Client.Timeout.Duration() != 5*time.Second {
		t.Fatalf("client: %+v", cfg.Client)
	}
	if cfg.SoftBan.ReportsThreshold != 5 || cfg.SoftBan.Window.Duration() != 15*time.Minute || cfg.SoftBan.Duration.Duration() != 48*time.Hour {
		t.Fatalf("soft_ban: %+v", cfg.SoftBan)
	}
	if cfg.Files.MaxFileSize.Int64() != 20*1000*1000 {
		t.Fatalf("max_file_size: %d", cfg.Files.MaxFileSize.Int64())
	}
	if cfg.Files.MaxBytesPerMeetup.Int64() != 209715200 {
		t.Fatalf("max_bytes_per_meetup: %d", cfg.Files.MaxBytesPerMeetup.Int64())
	}
	if cfg.Addr() != ":9000" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	// values absent from the file keep their defaults
	if cfg.Files.MaxFilesPerMeetup != 25 {
		t.Fatalf("max_files_per_meetup default lost: %d", cfg.Files.MaxFilesPerMeetup)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("client:\n  base_url: \"http://from-file:8000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MEETUP_API_URL", "http://from-env:8000")
	t.Setenv("MEETUP_SOFTBAN_THRESHOLD", "7")
	t.Setenv("MEETUP_SOFTBAN_WINDOW", "30m")
	t.Setenv("MEETUP_PORT", "7777")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.BaseURL != "http://from-env:8000" {
		t.Fatalf("env should win over file: %s", cfg.Client.BaseURL)
	}
	if cfg.SoftBan.ReportsThreshold != 7 || cfg.SoftBan.Window.Duration() != 30*time.Minute {
		t.Fatalf("soft_ban env: %+v", cfg.SoftBan)
	}
	if cfg.Server.Port != 7777 {
		t.Fatalf("port env: %d", cfg.Server.Port)
	}
}

func TestDurationNumericSeconds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("client:\n  timeout: 30\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Client.Timeout.Duration() != 30*time.Second {
		t.Fatalf("numeric duration: %v", cfg.Client.Timeout.Duration())
	}
}

func TestBadDurationRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("client:\n  timeout: soon\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for bad duration")
	}
}
