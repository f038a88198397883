package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Conversion.MatchWorkers != 4 {
		t.Errorf("MatchWorkers = %d, want 4", config.Conversion.MatchWorkers)
	}
	if config.Conversion.MatchThreshold != 0.6 {
		t.Errorf("MatchThreshold = %v, want 0.6", config.Conversion.MatchThreshold)
	}
	if config.Conversion.MatchRetries != 2 {
		t.Errorf("MatchRetries = %d, want 2", config.Conversion.MatchRetries)
	}
	if config.Conversion.CacheTTL() != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", config.Conversion.CacheTTL())
	}
	if config.Database.Path == "" {
		t.Error("default database path is empty")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[credentials.spotify]
client_id = "spotify-id"
client_secret = "spotify-secret"
redirect_uri = "http://localhost:8080/auth/spotify/callback"

[database]
path = "custom.db"

[server]
host = "0.0.0.0"
port = 9000

[conversion]
match_workers = 6
match_threshold = 0.75
cache_ttl_minutes = 10
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if config.Credentials.Spotify.ClientID != "spotify-id" {
		t.Errorf("ClientID = %q", config.Credentials.Spotify.ClientID)
	}
	if config.Database.Path != "custom.db" {
		t.Errorf("Database.Path = %q", config.Database.Path)
	}
	if config.Server.Port != 9000 {
		t.Errorf("Server.Port = %d", config.Server.Port)
	}
	if config.Conversion.MatchWorkers != 6 {
		t.Errorf("MatchWorkers = %d", config.Conversion.MatchWorkers)
	}
	if config.Conversion.MatchThreshold != 0.75 {
		t.Errorf("MatchThreshold = %v", config.Conversion.MatchThreshold)
	}
	if config.Conversion.CacheTTL() != 10*time.Minute {
		t.Errorf("CacheTTL = %v", config.Conversion.CacheTTL())
	}

	// Unset policy fields still get defaults
	if config.Conversion.SearchLimit != 10 {
		t.Errorf("SearchLimit = %d, want the default 10", config.Conversion.SearchLimit)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("got %v, want ErrMissingConfig", err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[conversion\nmatch_workers = 4"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfigZeroRetries(t *testing.T) {
	dir := t.TempDir()

	// Explicit zero disables retries
	explicit := filepath.Join(dir, "explicit.toml")
	if err := os.WriteFile(explicit, []byte("[conversion]\nmatch_retries = 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	config, err := LoadConfig(explicit)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if config.Conversion.MatchRetries != 0 {
		t.Errorf("MatchRetries = %d, explicit zero must stay zero", config.Conversion.MatchRetries)
	}

	// An absent key takes the default
	absent := filepath.Join(dir, "absent.toml")
	if err := os.WriteFile(absent, []byte("[conversion]\nmatch_workers = 4\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	config, err = LoadConfig(absent)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if config.Conversion.MatchRetries != 2 {
		t.Errorf("MatchRetries = %d, want the default 2", config.Conversion.MatchRetries)
	}
}

func TestApplyDefaultsCapsWorkers(t *testing.T) {
	config := &Config{}
	config.Conversion.MatchWorkers = 32
	config.applyDefaults()

	if config.Conversion.MatchWorkers != 8 {
		t.Errorf("MatchWorkers = %d, want the cap of 8", config.Conversion.MatchWorkers)
	}
}

func TestCreateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("CreateConfigFile() error: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("created config does not load: %v", err)
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when the file already exists")
	}
}
