package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Conversion  ConversionConfig  `toml:"conversion"`
}

// CredentialsConfig contains provider-specific OAuth credentials.
type CredentialsConfig struct {
	Spotify OAuthClientConfig `toml:"spotify"`
	YouTube OAuthClientConfig `toml:"youtube"`
}

// OAuthClientConfig contains one provider's OAuth client settings.
type OAuthClientConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ConversionConfig contains tunable policy values for the conversion engine.
type ConversionConfig struct {
	MatchWorkers    int     `toml:"match_workers"`     // concurrent match requests per job
	SearchRateLimit float64 `toml:"search_rate_limit"` // provider searches per second
	SearchLimit     int     `toml:"search_limit"`      // candidates fetched per search
	MatchThreshold  float64 `toml:"match_threshold"`   // minimum acceptable confidence
	MatchRetries    int     `toml:"match_retries"`     // retries per track on transient errors
	CacheTTLMinutes int     `toml:"cache_ttl_minutes"` // catalog staleness threshold
}

// CacheTTL returns the catalog staleness threshold as a [time.Duration].
func (c ConversionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// An explicit match_retries = 0 disables retries; only an absent key
	// takes the default.
	if !md.IsDefined("conversion", "match_retries") {
		config.Conversion.MatchRetries = 2
	}

	config.applyDefaults()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills in zero-valued conversion policy fields.
func (c *Config) applyDefaults() {
	if c.Conversion.MatchWorkers <= 0 {
		c.Conversion.MatchWorkers = 4
	}
	if c.Conversion.MatchWorkers > 8 {
		c.Conversion.MatchWorkers = 8
	}
	if c.Conversion.SearchRateLimit <= 0 {
		c.Conversion.SearchRateLimit = 5.0
	}
	if c.Conversion.SearchLimit <= 0 {
		c.Conversion.SearchLimit = 10
	}
	if c.Conversion.MatchThreshold <= 0 {
		c.Conversion.MatchThreshold = 0.6
	}
	if c.Conversion.MatchRetries < 0 {
		c.Conversion.MatchRetries = 0
	}
	if c.Conversion.CacheTTLMinutes <= 0 {
		c.Conversion.CacheTTLMinutes = 5
	}
}
