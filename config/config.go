package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the boostd daemon configuration.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	OpsAddress  string `toml:"OpsAddress"`
	DataDir     string `toml:"DataDir"`
	SeedFile    string `toml:"SeedFile"`
	IndexFile   string `toml:"IndexFile"`
	NetworkName string `toml:"NetworkName"`

	OracleURL            string `toml:"OracleURL"`
	OracleAPIKey         string `toml:"OracleAPIKey"`
	OracleTimeoutSeconds int    `toml:"OracleTimeoutSeconds"`
	OracleCacheSeconds   int    `toml:"OracleCacheSeconds"`

	AuthJWTSecret string `toml:"AuthJWTSecret"`
	AuthIssuer    string `toml:"AuthIssuer"`
	AuthAudience  string `toml:"AuthAudience"`

	TelemetryEndpoint string `toml:"TelemetryEndpoint"`
	TelemetryInsecure bool   `toml:"TelemetryInsecure"`
	TelemetryTraces   bool   `toml:"TelemetryTraces"`
	TelemetryMetrics  bool   `toml:"TelemetryMetrics"`
	Environment       string `toml:"Environment"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults(path string) {
	dir := filepath.Dir(path)
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8545"
	}
	if strings.TrimSpace(c.OpsAddress) == "" {
		c.OpsAddress = ":9090"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(dir, "boost-data")
	}
	if strings.TrimSpace(c.SeedFile) == "" {
		c.SeedFile = filepath.Join(dir, "seed.yaml")
	}
	if strings.TrimSpace(c.IndexFile) == "" {
		c.IndexFile = filepath.Join(dir, "boost-index.db")
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "prizeboost-local"
	}
	if c.OracleTimeoutSeconds <= 0 {
		c.OracleTimeoutSeconds = 10
	}
	if c.OracleCacheSeconds <= 0 {
		c.OracleCacheSeconds = 30
	}
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OracleURL) == "" {
		return fmt.Errorf("config: OracleURL is required")
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  ":8545",
		OpsAddress:  ":9090",
		NetworkName: "prizeboost-local",
		OracleURL:   "http://localhost:8081",
	}
	cfg.applyDefaults(path)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
